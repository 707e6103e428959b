// Package mathmail turns plain text with embedded LaTeX math into email
// artifacts that render the math as images.
//
// # Quick Start
//
// Create a converter, convert text, and close when done:
//
//	conv, err := mathmail.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	result, err := conv.Convert(ctx, mathmail.Input{
//	    Text:    "Euler: $e^{i\\pi} + 1 = 0$",
//	    Format:  mathmail.FormatRaw,
//	    Subject: "Identity",
//	    To:      "recipient@example.com",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Transport)
//
// # Conversion Pipeline
//
// The conversion process follows these stages:
//
//  1. Extraction: $$...$$ and \[...\] (display), \(...\) and $...$ (inline)
//  2. Substitution: each expression becomes a {{LATEX_IMG_<i>}} token and is
//     rendered to an image, several at a time
//  3. Composition: the text is escaped (or rendered as Markdown) and tokens
//     become <img> tags referencing cid:LATEX_IMG_<i> or a data: URI
//  4. Assembly: a multipart/related message, its URL-safe base64 transport
//     string, or a self-contained HTML document
//
// The same text and renderer always yield the same placeholders and image
// order, whatever order renders complete in.
//
// # Renderers
//
// The default renderer runs latex and dvipng from a local TeX installation.
// NewBrowserRenderer typesets with MathJax in headless Chrome instead. Any
// Renderer can be supplied with WithRenderer:
//
//	conv, err := mathmail.NewConverter(
//	    mathmail.WithRenderer(mathmail.RendererFunc(myRender)),
//	    mathmail.WithDPI(150),
//	    mathmail.WithTimeout(10 * time.Second),
//	)
//
// # Errors
//
// A render failure aborts the whole conversion. The error is a *RenderError
// carrying the expression and matches ErrRender:
//
//	var rerr *mathmail.RenderError
//	if errors.As(err, &rerr) {
//	    log.Printf("cannot render %q", rerr.Expression)
//	}
//
// Empty or whitespace-only input returns ErrEmptyInput.
package mathmail
