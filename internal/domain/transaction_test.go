package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionRecord_Month(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"01/03/2025", "03/2025"},
		{"1/03/2025", "3/2025"},
		{"01/03/2025 10:00", "03/2025 10:00"},
		{"01/", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.want, TransactionRecord{Date: tt.date}.Month())
		})
	}
}
