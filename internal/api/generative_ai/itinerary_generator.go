package generativeAI

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

const defaultTemperature = 0.4

// ContentGenerator is the part of AIClient the generator needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error)
}

var _ ContentGenerator = (*AIClient)(nil)

// ItineraryGenerator asks the model for a day-by-day skeleton.
type ItineraryGenerator struct {
	ai          ContentGenerator
	temperature float32
	logger      *slog.Logger
}

func NewItineraryGenerator(ai ContentGenerator, logger *slog.Logger) *ItineraryGenerator {
	return &ItineraryGenerator{
		ai:          ai,
		temperature: defaultTemperature,
		logger:      logger,
	}
}

type skeletonResponse struct {
	Days []types.Day `json:"days"`
}

// Generate returns the model's skeleton, trimmed to the trip length with
// days renumbered from 1.
func (g *ItineraryGenerator) Generate(ctx context.Context, prefs types.Preferences) (*types.SkeletonItinerary, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "GenerateItinerary", trace.WithAttributes(
		attribute.String("destination", prefs.Destination),
		attribute.Int("days", prefs.NumberOfDays()),
	))
	defer span.End()

	l := g.logger.With(slog.String("method", "Generate"), slog.String("destination", prefs.Destination))

	raw, err := g.ai.GenerateContent(ctx, getItineraryPrompt(prefs), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](g.temperature),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Model call failed")
		l.ErrorContext(ctx, "Failed to generate itinerary skeleton", slog.Any("error", err))
		return nil, fmt.Errorf("failed to generate itinerary: %w", err)
	}

	var resp skeletonResponse
	if err := json.Unmarshal([]byte(cleanJSONResponse(raw)), &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid JSON from model")
		l.ErrorContext(ctx, "Failed to parse itinerary skeleton",
			slog.Any("error", err),
			slog.Int("response.length", len(raw)))
		return nil, fmt.Errorf("failed to parse itinerary response: %w", err)
	}

	days := make([]types.Day, 0, len(resp.Days))
	for _, d := range resp.Days {
		if len(d.Activities) == 0 {
			continue
		}
		days = append(days, d)
	}
	if want := prefs.NumberOfDays(); want > 0 && len(days) > want {
		days = days[:want]
	}
	if len(days) == 0 {
		err := errors.New("model returned no usable days")
		span.RecordError(err)
		span.SetStatus(codes.Error, "Empty skeleton")
		return nil, err
	}
	for i := range days {
		days[i].Day = i + 1
	}

	span.SetAttributes(attribute.Int("days.generated", len(days)))
	span.SetStatus(codes.Ok, "Skeleton generated")
	l.DebugContext(ctx, "Skeleton generated", slog.Int("days", len(days)))
	return &types.SkeletonItinerary{Prefs: prefs, Days: days}, nil
}
