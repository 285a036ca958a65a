package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessageRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"非 JSON", `hello`},
		{"未知类型", `{"type": "reset_password", "to": "a@example.com", "data": {}}`},
		{"数据格式错误", `{"type": "run_finished", "to": "a@example.com", "data": {"runID": "x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildMessage("noreply@example.com", []byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestMailKindsDecodeIntoTypedData(t *testing.T) {
	for name, kind := range mailKinds {
		assert.NotNil(t, kind.data(), name)
		assert.NotEmpty(t, kind.subject, name)
	}
}
