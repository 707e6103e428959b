// Package pipeline implements the text-to-email conversion stages.
//
// Data flows strictly forward:
//   - Extract locates $$…$$, \[…\], \(…\) and $…$ spans in raw text
//   - Substitute swaps each span for a {{LATEX_IMG_<n>}} token and renders it
//   - Compose escapes the text, converts line breaks and resolves tokens to
//     <img> references (cid: or data:)
//   - Assemble wraps the composed HTML as a MIME message, its base64
//     transport form, or a standalone inline-image fragment
//
// Every stage is a pure function of its inputs. Rendering is delegated to a
// RenderFunc; this package knows nothing about LaTeX toolchains or browsers.
package pipeline
