package events

import (
	"context"
	"errors"
	"testing"
)

type recorder struct {
	topics []string
	err    error
}

func (r *recorder) Publish(_ context.Context, topic, _ string, _ any) error {
	r.topics = append(r.topics, topic)
	return r.err
}

func TestEmit(t *testing.T) {
	ctx := context.Background()

	r := &recorder{}
	Emit(ctx, r, TopicTripCreated, "t1", TripCreated{TripID: "t1"})
	if len(r.topics) != 1 || r.topics[0] != TopicTripCreated {
		t.Fatalf("unexpected topics %v", r.topics)
	}

	failing := &recorder{err: errors.New("broker down")}
	Emit(ctx, failing, TopicTripStatusChanged, "t1", TripStatusChanged{TripID: "t1"})
	if len(failing.topics) != 1 {
		t.Fatalf("expected publish attempt")
	}

	Emit(ctx, nil, TopicTripCreated, "t1", nil)
	if err := (Nop{}).Publish(ctx, TopicTripCreated, "t1", nil); err != nil {
		t.Fatalf("nop publish: %v", err)
	}
}

func TestKafkaPublisherMarshalError(t *testing.T) {
	p := NewKafkaPublisher([]string{"127.0.0.1:1"})
	defer p.Close()
	err := p.Publish(context.Background(), TopicTripCreated, "t1", make(chan int))
	if err == nil {
		t.Fatalf("expected marshal error")
	}
}
