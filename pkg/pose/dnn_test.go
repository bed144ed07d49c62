package pose

import "testing"

func TestBlazeRows(t *testing.T) {
	cases := []struct {
		name    string
		total   int
		want    int
		wantErr bool
	}{
		{name: "33 body landmarks", total: 165, want: 33},
		{name: "39 rows with auxiliary landmarks", total: 195, want: 39},
		{name: "not a multiple of the row width", total: 166, wantErr: true},
		{name: "fewer rows than the skeleton needs", total: 80, wantErr: true},
		{name: "empty tensor", total: 0, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := blazeRows(tc.total)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for total %d, got %d rows", tc.total, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("blazeRows(%d): %v", tc.total, err)
			}
			if got != tc.want {
				t.Errorf("blazeRows(%d) = %d, want %d", tc.total, got, tc.want)
			}
		})
	}
}
