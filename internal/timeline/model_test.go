package timeline

import "testing"

func validClip() Clip {
	return Clip{
		ID:        "a",
		TrackID:   "t1",
		SourceURL: "/media/a.mp4",
		StartTime: 0,
		Duration:  10,
		InPoint:   0,
		OutPoint:  10,
	}
}

func TestClip_Validate(t *testing.T) {
	if err := validClip().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestClip_Validate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Clip)
	}{
		{name: "no id", mutate: func(c *Clip) { c.ID = "" }},
		{name: "negative start", mutate: func(c *Clip) { c.StartTime = -1 }},
		{name: "zero duration", mutate: func(c *Clip) { c.Duration = 0 }},
		{name: "negative duration", mutate: func(c *Clip) { c.Duration = -3 }},
		{name: "inverted points", mutate: func(c *Clip) { c.InPoint = 10; c.OutPoint = 0 }},
		{name: "span mismatch", mutate: func(c *Clip) { c.OutPoint = 7 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := validClip()
			tc.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatal("Validate() expected error")
			}
		})
	}
}

func TestClip_Interior(t *testing.T) {
	c := validClip()

	if c.Interior(c.StartTime) {
		t.Error("start boundary must not be interior")
	}
	if c.Interior(c.EndTime()) {
		t.Error("end boundary must not be interior")
	}
	if !c.Interior(4) {
		t.Error("4 should be interior of [0, 10)")
	}
	if c.Interior(-1) || c.Interior(11) {
		t.Error("out-of-range times must not be interior")
	}
}

func TestClip_Overlaps(t *testing.T) {
	a := Clip{ID: "a", TrackID: "t1", StartTime: 0, Duration: 5}
	b := Clip{ID: "b", TrackID: "t1", StartTime: 4, Duration: 5}
	c := Clip{ID: "c", TrackID: "t1", StartTime: 5, Duration: 5}
	d := Clip{ID: "d", TrackID: "t2", StartTime: 0, Duration: 5}

	if !a.Overlaps(b) {
		t.Error("a and b intersect and should overlap")
	}
	if a.Overlaps(c) {
		t.Error("adjacent clips share only a boundary and should not overlap")
	}
	if a.Overlaps(d) {
		t.Error("clips on different tracks never overlap")
	}
}
