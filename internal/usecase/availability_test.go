package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visa-rescheduler/internal/entity"
	"visa-rescheduler/pkg/apperr"
)

func TestDecideAvailability(t *testing.T) {
	cutoff := day(2024, time.June, 1)

	cases := []struct {
		name     string
		days     []entity.AvailableDay
		want     time.Time
		wantCode string
		reason   string
	}{
		{
			name: "earliest before cutoff",
			days: []entity.AvailableDay{{Date: "2024-05-20"}, {Date: "2024-05-10"}, {Date: "2024-07-01"}},
			want: day(2024, time.May, 10),
		},
		{
			name:     "empty list",
			wantCode: apperr.CodeNoBetterDate,
			reason:   "no_available_dates",
		},
		{
			name:     "earliest after cutoff",
			days:     []entity.AvailableDay{{Date: "2024-08-01"}, {Date: "2024-07-01"}},
			want:     day(2024, time.July, 1),
			wantCode: apperr.CodeNoBetterDate,
			reason:   "no_earlier_date",
		},
		{
			name:     "earliest equals cutoff",
			days:     []entity.AvailableDay{{Date: "2024-06-01"}},
			want:     cutoff,
			wantCode: apperr.CodeNoBetterDate,
			reason:   "no_earlier_date",
		},
		{
			name:     "malformed date",
			days:     []entity.AvailableDay{{Date: "01/05/2024"}},
			wantCode: apperr.CodeStructural,
			reason:   "malformed_date",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecideAvailability(tc.days, cutoff)

			if tc.wantCode == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tc.wantCode, apperr.CodeOf(err))
				assert.Equal(t, tc.reason, apperr.Reason(err))
			}

			assert.Equal(t, tc.want, got)
		})
	}
}
