package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// Composer turns weather and attraction data into the report text.
type Composer interface {
	Compose(ctx context.Context, req TripRequest, days []DayWeather, attractions []Attraction) (string, error)
}

// TextComposer writes the report without an LLM. Output is stable for
// identical inputs.
type TextComposer struct{}

// Compose renders a plain-text report.
func (c *TextComposer) Compose(_ context.Context, req TripRequest, days []DayWeather, attractions []Attraction) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Trip report for %s (%s to %s)\n\n", req.City, req.StartDate, req.EndDate)

	b.WriteString("Weather\n")
	for _, d := range days {
		fmt.Fprintf(&b, "- %s: %.1f°C to %.1f°C, %.1f mm precipitation over %.0f h\n",
			d.Date, d.TempMin, d.TempMax, d.PrecipSum, d.PrecipHours)
	}

	if anyRain(days) {
		b.WriteString("\nRain is expected in this period, so indoor attractions are suggested:\n")
	} else {
		b.WriteString("\nNo significant rain in this period, so outdoor attractions are suggested:\n")
	}

	if len(attractions) == 0 {
		b.WriteString("- no attractions found nearby\n")
	}
	for _, a := range attractions {
		fmt.Fprintf(&b, "- %s (%.1f km away)\n", a.Name, a.Dist/1000)
	}

	return b.String(), nil
}

// GeminiComposer writes the report with Gemini.
type GeminiComposer struct {
	client    *genai.Client
	modelName string
	fallback  TextComposer
	logger    *slog.Logger
}

// NewGeminiComposer creates a new GeminiComposer
func NewGeminiComposer(apiKey, modelName string, logger *slog.Logger) (*GeminiComposer, error) {
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiComposer{
		client:    client,
		modelName: modelName,
		logger:    logger,
	}, nil
}

// Compose asks the model to write the report from the fetched data.
// On a model error the deterministic composer is used instead, so a
// flaky LLM backend never fails the task.
func (c *GeminiComposer) Compose(ctx context.Context, req TripRequest, days []DayWeather, attractions []Attraction) (string, error) {
	facts, err := c.fallback.Compose(ctx, req, days, attractions)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(
		"You are an expert trip planner for %s. Using only the data below, "+
			"write a short trip report: first a summary of the weather between "+
			"%s and %s, then a bullet-point list of attractions to visit given "+
			"the weather conditions.\n\n%s",
		req.City, req.StartDate, req.EndDate, facts,
	)

	resp, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), nil)
	if err != nil {
		c.logger.Warn("Gemini generation failed, falling back to plain report",
			slog.Any("error", err),
		)
		return facts, nil
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("Gemini returned an empty response, falling back to plain report")
		return facts, nil
	}

	return text, nil
}
