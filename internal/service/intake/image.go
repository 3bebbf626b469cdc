package intake

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log"
	"os"
	"strings"

	"medlabel/internal/imageprep"
	"medlabel/internal/models"
	"medlabel/internal/textnorm"
)

// ProcessImage runs the image intake pipeline over a base64-encoded bitmap:
// decode, preprocess, recognize, normalize, append to the context store, then
// extract the structured card. A failed extraction does not roll back the
// context append; the two stores diverge deliberately under partial failure.
func (s *Service) ProcessImage(ctx context.Context, encoded string) (*models.CardRecord, error) {
	bitmap, err := decodeImagePayload(encoded)
	if err != nil {
		return nil, failed(StageDecode, KindDecode, err)
	}

	prepared := imageprep.PrepareForOCR(bitmap)

	token := s.files.Allocate()
	scanPath := s.files.Path(models.TransientScan, token, ".png")
	if err := writePNG(scanPath, prepared); err != nil {
		return nil, failed(StageRecognize, KindRecognition, err)
	}
	if err := s.files.Register(ctx, token, models.TransientScan, scanPath); err != nil {
		log.Printf("register scan %s: %v", scanPath, err)
	}
	defer s.files.Release(scanPath)

	raw, err := s.ocr.Recognize(ctx, scanPath)
	if err != nil {
		return nil, failed(StageRecognize, KindRecognition, err)
	}

	block := textnorm.Normalize(raw)
	if block == "" {
		return nil, failed(StageRecognize, KindRecognition, fmt.Errorf("recognized text is empty after normalization"))
	}

	if err := s.contexts.Append(block); err != nil {
		return nil, failed(StageAppend, KindStore, err)
	}

	record, err := s.extractFields(ctx, block)
	if err != nil {
		// the appended context block stays; only the card is withheld
		return nil, failed(StageExtract, KindExtraction, err)
	}

	if err := s.cards.Replace(*record); err != nil {
		return nil, failed(StageReplace, KindStore, err)
	}
	return record, nil
}

// decodeImagePayload accepts a bare base64 string or a data URL envelope and
// decodes it into a bitmap.
func decodeImagePayload(encoded string) (image.Image, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, fmt.Errorf("empty image payload")
	}
	if idx := strings.Index(encoded, ";base64,"); idx >= 0 {
		encoded = encoded[idx+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write scan: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode scan: %w", err)
	}
	return nil
}
