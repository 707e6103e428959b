//go:build bench

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"
)

// benchPNG is a 16x16 PNG shared by every render in the benchmarks.
var benchPNG = func() []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewGray(image.Rect(0, 0, 16, 16)))
	return buf.Bytes()
}()

func benchRender(context.Context, string, bool) ([]byte, error) {
	return benchPNG, nil
}

// generateMathText returns n lines mixing prose, inline and display math.
func generateMathText(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "Line %d costs $%d and solves $a_%d x^2 + b x = 0$ ", i, i, i)
		fmt.Fprintf(&sb, "with \\(x \\neq %d\\) and \\[\\int_0^%d f\\,dx\\]\n", i, i)
	}
	return sb.String()
}

// BenchmarkExtract benchmarks delimiter scanning by input size.
func BenchmarkExtract(b *testing.B) {
	for _, n := range []int{1, 10, 100, 1000} {
		text := generateMathText(n)
		b.Run(fmt.Sprintf("lines_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				_ = Extract(text)
			}
		})
	}
}

// BenchmarkSubstitute benchmarks placeholder substitution with an instant
// renderer, so the cost is scheduling and string building.
func BenchmarkSubstitute(b *testing.B) {
	ctx := context.Background()
	text := generateMathText(100)
	spans := Extract(text)

	for _, workers := range []int{1, 4, 8} {
		b.Run(fmt.Sprintf("workers_%d", workers), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, _, err := Substitute(ctx, text, spans, benchRender, workers); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkCompose benchmarks body conversion and image reference
// resolution for both reference modes.
func BenchmarkCompose(b *testing.B) {
	ctx := context.Background()
	text := generateMathText(50)
	processed, images, err := Substitute(ctx, text, Extract(text), benchRender, 4)
	if err != nil {
		b.Fatal(err)
	}

	bodies := []struct {
		name string
		body BodyConverter
	}{
		{"text", PlainText{}},
		{"markdown", NewMarkdown()},
	}
	for _, body := range bodies {
		for _, mode := range []RefMode{RefContentID, RefInlineData} {
			b.Run(body.name+"/"+mode.String(), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, err := Compose(ctx, processed, images, ComposeOptions{Mode: mode, Body: body.body}); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

// BenchmarkAssemble benchmarks each artifact format end to end from
// processed text.
func BenchmarkAssemble(b *testing.B) {
	ctx := context.Background()
	text := generateMathText(50)
	processed, images, err := Substitute(ctx, text, Extract(text), benchRender, 4)
	if err != nil {
		b.Fatal(err)
	}
	shell, err := NewDocumentShell(testShellTemplate, "Bench", "")
	if err != nil {
		b.Fatal(err)
	}

	for _, format := range []Format{FormatHTML, FormatMIME, FormatRaw} {
		b.Run(format.String(), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, err := Assemble(ctx, processed, images, AssembleOptions{
					Format:  format,
					Headers: Headers{Subject: "Bench", From: "a@uni.example", To: "b@uni.example"},
				})
				if err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
