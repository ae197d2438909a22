package terrain

import "testing"

func TestSettingsValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Settings)
		ok     bool
	}{
		{"defaults", func(*Settings) {}, true},
		{"largest grid", func(s *Settings) { s.TileSize = maxTileSize }, true},
		{"tile size too small", func(s *Settings) { s.TileSize = 1 }, false},
		{"tile size overflows mesh indices", func(s *Settings) { s.TileSize = maxTileSize + 1 }, false},
		{"inverted levels", func(s *Settings) { s.MinLevel = 3; s.MaxLevel = 2 }, false},
		{"zero screen-space error", func(s *Settings) { s.ScreenSpaceError = 0 }, false},
		{"negative skirt", func(s *Settings) { s.SkirtRatio = -0.1 }, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := testSettings()
			c.mutate(&s)
			err := s.Validate()
			if c.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !c.ok && err == nil {
				t.Error("Validate() accepted an invalid configuration")
			}
		})
	}
}
