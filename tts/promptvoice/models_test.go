package promptvoice

import "testing"

func TestModelCatalog(t *testing.T) {
	if len(Models) != 3 {
		t.Fatalf("Expected 3 models, got %d", len(Models))
	}

	defaults := 0
	for _, m := range Models {
		if m.ID == "" || m.HFName == "" || m.Name == "" {
			t.Errorf("Expected complete metadata, got %+v", m)
		}
		if m.Quality < 1 || m.Quality > 5 || m.Speed < 1 || m.Speed > 5 {
			t.Errorf("Expected 1-5 ratings, got %+v", m)
		}
		if m.Default {
			defaults++
			if m.ID != DefaultModelID {
				t.Errorf("Expected default flag on %s, got %s", DefaultModelID, m.ID)
			}
		}
	}
	if defaults != 1 {
		t.Errorf("Expected exactly one default model, got %d", defaults)
	}
}

func TestModelByID(t *testing.T) {
	m, ok := ModelByID("parler-large-v1")
	if !ok {
		t.Fatal("Expected parler-large-v1 to exist")
	}
	if m.Quality != 5 {
		t.Errorf("Expected quality 5, got %d", m.Quality)
	}

	if _, ok := ModelByID("bark-v2"); ok {
		t.Error("Expected unknown id to report false")
	}
}
