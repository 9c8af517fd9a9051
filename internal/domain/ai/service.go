// Package ai gates the AI text/image processing features behind the credit
// ledger. The model backend itself is an external collaborator.
package ai

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dispatchly/dispatchly-api/internal/domain/credits"
	"github.com/dispatchly/dispatchly-api/internal/pkg/imaging"
)

// Processor is the AI backend boundary.
type Processor interface {
	ProcessText(ctx context.Context, prompt string) (string, error)
	ProcessImage(ctx context.Context, image []byte, contentType string) (string, error)
}

type Service struct {
	processor  Processor
	gate       *credits.Gate
	normalizer *imaging.Normalizer
}

func NewService(processor Processor, gate *credits.Gate, normalizer *imaging.Normalizer) *Service {
	return &Service{processor: processor, gate: gate, normalizer: normalizer}
}

// ProcessText runs a text prompt through the backend behind the credit gate.
func (s *Service) ProcessText(ctx context.Context, tenantID, userID uuid.UUID, prompt string) (string, error) {
	var result string
	meta := credits.ChargeMeta{
		Description: "AI text processing",
		ActorID:     &userID,
	}

	err := s.gate.Charge(ctx, tenantID, credits.FeatureTextProcessing, meta, func(ctx context.Context) error {
		out, err := s.processor.ProcessText(ctx, prompt)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// ProcessImage normalizes the image locally, then runs it through the backend
// behind the credit gate. Normalization failures are client errors and cost
// nothing.
func (s *Service) ProcessImage(ctx context.Context, tenantID, userID uuid.UUID, image []byte) (string, error) {
	normalized, err := s.normalizer.Normalize(bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	var result string
	meta := credits.ChargeMeta{
		Description: "AI image processing",
		ActorID:     &userID,
	}

	err = s.gate.Charge(ctx, tenantID, credits.FeatureImageProcessing, meta, func(ctx context.Context) error {
		out, err := s.processor.ProcessImage(ctx, normalized.Data, normalized.ContentType)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
