package match

import "testing"

func TestClassifyNoMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		hardFiltered  int
		scoreFiltered int
		want          string
	}{
		{
			name:          "everything hard filtered",
			hardFiltered:  200,
			scoreFiltered: 0,
			want:          NoMatchAllFilteredHard,
		},
		{
			name:          "everything score filtered",
			hardFiltered:  0,
			scoreFiltered: 200,
			want:          NoMatchAllFilteredScore,
		},
		{
			name:          "one hard rejection among many score rejections",
			hardFiltered:  1,
			scoreFiltered: 199,
			want:          NoMatchAllFilteredScore,
		},
		{
			name:          "mostly hard with a single score rejection",
			hardFiltered:  199,
			scoreFiltered: 1,
			want:          NoMatchAllFilteredScore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyNoMatch(tt.hardFiltered, tt.scoreFiltered); got != tt.want {
				t.Fatalf("classifyNoMatch(%d, %d) = %q, want %q",
					tt.hardFiltered, tt.scoreFiltered, got, tt.want)
			}
		})
	}
}
