package scheduling

import "testing"

func TestFilterSlots(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Interval
		blocked    []Interval
		buffer     int
		want       []Interval
	}{
		{
			name:       "removes slot containing a blocked interval",
			candidates: []Interval{iv(10, 0, 11, 0)},
			blocked:    []Interval{iv(10, 30, 10, 45)},
			want:       []Interval{},
		},
		{
			name:       "keeps adjacent slot",
			candidates: []Interval{iv(10, 0, 11, 0)},
			blocked:    []Interval{iv(11, 0, 12, 0)},
			want:       []Interval{iv(10, 0, 11, 0)},
		},
		{
			name:       "buffer expands the candidate into a conflict",
			candidates: []Interval{iv(10, 0, 11, 0)},
			blocked:    []Interval{iv(11, 0, 12, 0)},
			buffer:     15,
			want:       []Interval{},
		},
		{
			name:       "buffer does not expand the blocked interval",
			candidates: []Interval{iv(10, 0, 11, 0)},
			blocked:    []Interval{iv(11, 30, 12, 0)},
			buffer:     15,
			want:       []Interval{iv(10, 0, 11, 0)},
		},
		{
			name: "survivors keep original order",
			candidates: []Interval{
				iv(9, 0, 9, 30), iv(9, 30, 10, 0), iv(10, 0, 10, 30), iv(10, 30, 11, 0),
			},
			blocked: []Interval{iv(9, 30, 10, 0)},
			want:    []Interval{iv(9, 0, 9, 30), iv(10, 0, 10, 30), iv(10, 30, 11, 0)},
		},
		{
			name:       "empty blocked set keeps everything",
			candidates: []Interval{iv(9, 0, 10, 0)},
			want:       []Interval{iv(9, 0, 10, 0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterSlots(tt.candidates, tt.blocked, tt.buffer)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d slots %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("slot %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
