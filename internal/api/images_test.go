package api

import "testing"

func TestImageURL(t *testing.T) {
	tests := []struct {
		path   string
		size   ImageSize
		want   string
		wantOK bool
	}{
		{"", ImageW500, "", false},
		{"/abc.jpg", ImageW200, "https://image.tmdb.org/t/p/w200/abc.jpg", true},
		{"abc.jpg", ImageOriginal, "https://image.tmdb.org/t/p/original/abc.jpg", true},
		{"/abc.jpg", ImageSize("w9000"), "https://image.tmdb.org/t/p/w500/abc.jpg", true},
		{"https://cdn.example.com/p.jpg", ImageW200, "https://cdn.example.com/p.jpg", true},
	}
	for _, tt := range tests {
		got, ok := ImageURL(tt.path, tt.size)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ImageURL(%q, %q) = %q, %v; want %q, %v", tt.path, tt.size, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{
		"":          "",
		"all":       "",
		"watched":   StatusWatched,
		"WatchList": StatusWatchlist,
		" favorite": StatusFavorite,
	} {
		got, err := ParseStatus(in)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseStatus(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseStatus("seen"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestDetailsHelpers(t *testing.T) {
	d := MovieDetails{
		ReleaseDate: "1999-03-31",
		Credits: &Credits{
			Cast: []CastMember{{Name: "Carrie-Anne Moss", Order: 2}, {Name: "Keanu Reeves", Order: 0}, {Name: "Laurence Fishburne", Order: 1}},
			Crew: []CrewMember{{Name: "Lana Wachowski", Job: "Director"}, {Name: "Bill Pope", Job: "Director of Photography"}, {Name: "Lilly Wachowski", Job: "Director"}},
		},
	}
	if d.Year() != "1999" {
		t.Errorf("Year = %q", d.Year())
	}
	if got := d.TopCast(2); len(got) != 2 || got[0] != "Keanu Reeves" || got[1] != "Laurence Fishburne" {
		t.Errorf("TopCast = %v", got)
	}
	if got := d.Directors(); len(got) != 2 {
		t.Errorf("Directors = %v", got)
	}
}
