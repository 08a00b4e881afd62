package transform

import (
	"bytes"
	"context"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"

	"github.com/gabriel-vasile/mimetype"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"

	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/pipeline"
)

// ImageOptions configures image optimisation.
type ImageOptions struct {
	JPEGQuality int
}

// Images re-encodes PNG, JPEG and GIF files and minifies SVG files, keeping
// whichever of the original and the optimised bytes is smaller. Other file
// types pass through untouched. Images that fail to decode are passed through
// with a warning.
func Images(opts ImageOptions) pipeline.Step {
	m := minify.New()
	m.AddFunc("image/svg+xml", svg.Minify)

	return pipeline.PerFile("images", func(_ context.Context, f pipeline.File) (pipeline.File, error) {
		mtype := mimetype.Detect(f.Content)
		var (
			optimised []byte
			err       error
		)
		switch {
		case mtype.Is("image/png"):
			optimised, err = reencodePNG(f.Content)
		case mtype.Is("image/jpeg"):
			optimised, err = reencodeJPEG(f.Content, opts.JPEGQuality)
		case mtype.Is("image/gif"):
			optimised, err = reencodeGIF(f.Content)
		case mtype.Is("image/svg+xml") || f.Ext() == ".svg":
			optimised, err = m.Bytes("image/svg+xml", f.Content)
		default:
			return f, nil
		}
		if err != nil {
			slog.Warn("Image left unoptimised", logfields.File(f.Source()), "mime", mtype.String(), logfields.Error(err))
			return f, nil
		}
		if len(optimised) < len(f.Content) {
			return f.WithContent(optimised), nil
		}
		return f, nil
	})
}

func reencodePNG(src []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func reencodeJPEG(src []byte, quality int) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func reencodeGIF(src []byte) ([]byte, error) {
	g, err := gif.DecodeAll(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
