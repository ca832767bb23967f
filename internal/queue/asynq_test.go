package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseQueueWeights(t *testing.T) {
	tests := []struct {
		in   string
		want map[string]int
	}{
		{"", map[string]int{}},
		{"default", map[string]int{"default": 1}},
		{"critical=6, default=3,low=1", map[string]int{"critical": 6, "default": 3, "low": 1}},
		{"bad=x,=4,ok=0", map[string]int{"bad": 1, "ok": 1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseQueueWeights(tt.in), tt.in)
	}
}

func TestAsynqOptions(t *testing.T) {
	assert.Nil(t, asynqOptions(nil))
	assert.Len(t, asynqOptions([]EnqueueOption{{MaxRetry: 10, Queue: "counters", ProcessIn: time.Second}}), 3)
	assert.Empty(t, asynqOptions([]EnqueueOption{{}}))
}

func TestNewAsynqClientRequiresURL(t *testing.T) {
	_, err := NewAsynqClient("")
	assert.Error(t, err)

	_, err = NewAsynqServer("", 1, "")
	assert.Error(t, err)
}
