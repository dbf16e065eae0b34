package exchange

import (
	"testing"
	"time"
)

func TestParseOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:  "valid pair",
			input: `["Celtics", "Heat"]`,
			want:  []string{"Celtics", "Heat"},
		},
		{
			name:  "empty string",
			input: "",
			want:  nil,
		},
		{
			name:  "empty array",
			input: `[]`,
			want:  []string{},
		},
		{
			name:    "invalid json",
			input:   `[invalid`,
			wantErr: true,
		},
		{
			name:    "single quoted list",
			input:   `['Celtics', 'Heat']`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Market{Outcomes: tt.input}
			got, err := m.ParseOutcomes()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutcomes() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseOutcomes() got %d outcomes, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseOutcomes()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseOutcomePrices(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{
			name:  "valid prices",
			input: `["0.615", "0.40"]`,
			want:  []string{"0.615", "0.40"},
		},
		{
			name:  "empty string",
			input: "",
			want:  nil,
		},
		{
			name:    "bare numbers",
			input:   `[0.615, 0.40]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Market{OutcomePrices: tt.input}
			got, err := m.ParseOutcomePrices()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutcomePrices() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseOutcomePrices() got %d prices, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseOutcomePrices()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseTokenIDs(t *testing.T) {
	m := &Market{ClobTokenIds: `["71321045679252212594626385532706912750332728571942532289631379312455583992563", "52114319501245915516055106046884209969926127482827954674443846427813813222426"]`}
	ids, err := m.ParseTokenIDs()
	if err != nil {
		t.Fatalf("ParseTokenIDs() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ParseTokenIDs() got %d ids, want 2", len(ids))
	}

	m = &Market{}
	ids, err = m.ParseTokenIDs()
	if err != nil || ids != nil {
		t.Errorf("ParseTokenIDs() on empty field = %v, %v, want nil, nil", ids, err)
	}
}

func TestGameStart(t *testing.T) {
	date := time.Date(2025, 3, 14, 23, 30, 0, 0, time.UTC)
	trading := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ev   Event
		want time.Time
	}{
		{
			name: "startDate preferred",
			ev:   Event{StartDate: date, StartTime: trading},
			want: date,
		},
		{
			name: "startTime fallback",
			ev:   Event{StartTime: trading},
			want: trading,
		},
		{
			name: "both absent",
			ev:   Event{},
			want: time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.GameStart(); !got.Equal(tt.want) {
				t.Errorf("GameStart() = %v, want %v", got, tt.want)
			}
		})
	}
}
