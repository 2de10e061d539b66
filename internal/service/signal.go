package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/opencadastre/cadastre"
)

const eventChannel = "cadastre:events"

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, event cadastre.Event) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, eventChannel, jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

// Realtime streams registry events to output until ctx is cancelled or
// input is closed. Filters arriving on input replace the current set; a
// filter matches an event by kind prefix, by record id, or with "*".
func (s *SignalService) Realtime(ctx context.Context, input chan []string, output chan cadastre.Event) {
	pubsub := s.rdb.Subscribe(ctx, eventChannel)
	defer pubsub.Close()

	messages := pubsub.Channel()
	var filters []string

	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-input:
			if !ok {
				return
			}
			filters = next
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event cadastre.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			if !matchesFilters(filters, event) {
				continue
			}
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func matchesFilters(filters []string, event cadastre.Event) bool {
	if len(filters) == 0 {
		return true
	}
	id := strconv.FormatUint(event.RecordID, 10)
	for _, filter := range filters {
		if filter == "*" || filter == id || strings.HasPrefix(event.Kind, filter) {
			return true
		}
	}
	return false
}
