package events

import (
	"fmt"

	"github.com/OldStager01/genomerx/internal/registry"
	"github.com/OldStager01/genomerx/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	if p == nil {
		return nil
	}
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p == nil || p.bus == nil {
		return
	}
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) PredictionCompleted(report *models.PredictionReport) {
	msg := fmt.Sprintf("Prediction completed for %s", report.FileName)
	event := models.NewEvent(models.EventTypePredictionCompleted, msg).
		WithPathogen(report.Pathogen).
		WithData(report)
	p.publish(event)
}

func (p *Publisher) PredictionFailed(filename string, err error) {
	event := models.NewEvent(models.EventTypePredictionFailed, "Prediction failed for "+filename).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"fileName": filename,
			"error":    err.Error(),
		})
	p.publish(event)
}

// MDRDetected lists the antibiotics that made the report multi-drug resistant.
func (p *Publisher) MDRDetected(report *models.PredictionReport, threshold int) {
	resistant := report.Resistant(threshold)
	names := make([]string, 0, len(resistant))
	for _, a := range resistant {
		names = append(names, a.Name)
	}

	msg := fmt.Sprintf("MDR profile detected in %s (%d antibiotics below %d%%)", report.FileName, len(names), threshold)
	event := models.NewEvent(models.EventTypeMDRDetected, msg).
		WithSeverity(models.SeverityWarning).
		WithPathogen(report.Pathogen).
		WithData(map[string]interface{}{
			"id":          report.ID,
			"fileName":    report.FileName,
			"antibiotics": names,
		})
	p.publish(event)
}

// ModelLoad reports a registry load attempt.
func (p *Publisher) ModelLoad(ev registry.LoadEvent) {
	data := map[string]interface{}{
		"antibiotic":  ev.Antibiotic,
		"key":         ev.Key,
		"duration_ms": ev.Duration.Milliseconds(),
	}

	if ev.Err != nil {
		data["error"] = ev.Err.Error()
		event := models.NewEvent(models.EventTypeModelLoadFailed, "Model load failed: "+ev.Key).
			WithSeverity(models.SeverityCritical).
			WithData(data)
		p.publish(event)
		return
	}

	data["capability"] = string(ev.Capability)
	p.publish(models.NewEvent(models.EventTypeModelLoaded, "Model loaded: "+ev.Key).WithData(data))
}
