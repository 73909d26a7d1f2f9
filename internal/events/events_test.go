package events

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/genomerx/internal/logger"
	"github.com/OldStager01/genomerx/internal/registry"
	"github.com/OldStager01/genomerx/pkg/models"
)

func receive(t *testing.T, ch <-chan *models.Event) *models.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func sampleReport() *models.PredictionReport {
	return &models.PredictionReport{
		ID:       "01TEST",
		FileName: "x.fasta",
		Pathogen: "Klebsiella pneumoniae",
		Antibiotics: []models.AntibioticScore{
			models.NewAntibioticScore("Meropenem", 10, "model"),
			models.NewAntibioticScore("Amoxicillin", 90, "model"),
			models.NewAntibioticScore("Gentamicin", 20, "model"),
		},
	}
}

func TestEventBus_TypedSubscription(t *testing.T) {
	bus := NewEventBus(4)
	mdr := bus.Subscribe(models.EventTypeMDRDetected)
	all := bus.SubscribeAll()
	pub := NewPublisher(bus).WithTraceID("trace-1")

	pub.PredictionCompleted(sampleReport())
	pub.MDRDetected(sampleReport(), 40)

	e := receive(t, mdr)
	assert.Equal(t, models.EventTypeMDRDetected, e.Type)
	assert.Equal(t, models.SeverityWarning, e.Severity)
	assert.Equal(t, "trace-1", e.TraceID)
	data := e.Data.(map[string]interface{})
	assert.Equal(t, []string{"Meropenem", "Gentamicin"}, data["antibiotics"])

	assert.Equal(t, models.EventTypePredictionCompleted, receive(t, all).Type)
	assert.Equal(t, models.EventTypeMDRDetected, receive(t, all).Type)
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := NewEventBus(1)
	ch := bus.SubscribeAll()
	pub := NewPublisher(bus)

	pub.PredictionFailed("a", errors.New("x"))
	pub.PredictionFailed("b", errors.New("y"))

	assert.Len(t, ch, 1)
}

func TestEventBus_CloseIsIdempotent(t *testing.T) {
	bus := NewEventBus(1)
	ch := bus.Subscribe(models.EventTypeModelLoaded, models.EventTypeModelLoadFailed)

	bus.Close()
	bus.Close()

	_, ok := <-ch
	assert.False(t, ok)
	assert.NotPanics(t, func() { bus.Publish(models.NewEvent(models.EventTypeModelLoaded, "late")) })
}

func TestPublisher_ModelLoad(t *testing.T) {
	bus := NewEventBus(4)
	ch := bus.SubscribeAll()
	pub := NewPublisher(bus)

	pub.ModelLoad(registry.LoadEvent{Antibiotic: "Meropenem", Key: "meropenem", Capability: registry.CapabilityMargin})
	pub.ModelLoad(registry.LoadEvent{Antibiotic: "Meropenem", Key: "meropenem", Err: errors.New("bad json")})

	ok := receive(t, ch)
	assert.Equal(t, models.EventTypeModelLoaded, ok.Type)
	assert.Equal(t, "margin", ok.Data.(map[string]interface{})["capability"])

	failed := receive(t, ch)
	assert.Equal(t, models.EventTypeModelLoadFailed, failed.Type)
	assert.Equal(t, models.SeverityCritical, failed.Severity)
}

func TestPublisher_NilSafe(t *testing.T) {
	var pub *Publisher
	assert.NotPanics(t, func() { pub.PredictionFailed("x", errors.New("y")) })
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestEventLogger_LogsEvents(t *testing.T) {
	var buf syncBuffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stdout)

	bus := NewEventBus(4)
	l := NewEventLogger(bus.SubscribeAll())
	l.Start()

	NewPublisher(bus).MDRDetected(sampleReport(), 40)
	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "MDR profile detected")
	}, time.Second, 10*time.Millisecond)

	l.Stop()
	assert.Contains(t, buf.String(), `"pathogen":"Klebsiella pneumoniae"`)
}
