package promptvoice

// Model describes one voice generation model, with quality and speed rated
// one to five.
type Model struct {
	ID          string  `json:"id"`
	HFName      string  `json:"hf_name"`
	Name        string  `json:"name"`
	Quality     int     `json:"quality"`
	Speed       int     `json:"speed"`
	VRAMGB      float64 `json:"vram_gb"`
	DownloadGB  float64 `json:"download_gb"`
	Description string  `json:"description"`
	SampleRate  int     `json:"sample_rate"`
	Default     bool    `json:"default"`
}

// DefaultModelID is used when a request does not name a model.
const DefaultModelID = "parler-mini-v1.1"

// Models lists the available voice generation models.
var Models = []Model{
	{
		ID:          "parler-mini-v1.1",
		HFName:      "parler-tts/parler-tts-mini-v1.1",
		Name:        "Parler Mini v1.1",
		Quality:     4,
		Speed:       4,
		VRAMGB:      1.1,
		DownloadGB:  2.2,
		Description: "Best balance of quality and speed. Good for most voices.",
		SampleRate:  44100,
		Default:     true,
	},
	{
		ID:          "parler-large-v1",
		HFName:      "parler-tts/parler-tts-large-v1",
		Name:        "Parler Large v1",
		Quality:     5,
		Speed:       2,
		VRAMGB:      2.3,
		DownloadGB:  4.5,
		Description: "Highest quality but slow (~5-7 min). Rich detail, natural prosody, accurate accents.",
		SampleRate:  44100,
		Default:     false,
	},
	{
		ID:          "parler-mini-v1",
		HFName:      "parler-tts/parler-tts-mini-v1",
		Name:        "Parler Mini v1",
		Quality:     3,
		Speed:       4,
		VRAMGB:      1.1,
		DownloadGB:  2.2,
		Description: "Fast generation, smaller download. Some mispronunciations. Good for quick tests.",
		SampleRate:  44100,
		Default:     false,
	},
}

// ModelByID looks a model up by id; ok is false for unknown ids.
func ModelByID(id string) (Model, bool) {
	for _, m := range Models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}
