package interaction

import "whiteboard/internal/spatial"

// MinMarqueeSize is the smallest marquee side, in world units, that selects
// anything. Smaller rectangles are treated as a click on empty canvas.
const MinMarqueeSize = 5

type marqueeState struct {
	startX, startY float64
	rect           spatial.Rect
}

// BeginMarquee starts a rubber-band selection at (x, y).
func (c *Controller) BeginMarquee(x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseIdle {
		return ErrBusy
	}
	c.marquee = &marqueeState{startX: x, startY: y, rect: spatial.Rect{X: x, Y: y}}
	c.phase = PhaseMarquee
	return nil
}

func (c *Controller) UpdateMarquee(x, y float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.marquee == nil {
		return ErrNoGesture
	}
	c.marquee.rect = spatial.RectFromPoints(c.marquee.startX, c.marquee.startY, x, y)
	return nil
}

// EndMarquee selects every non-connector overlapping the marquee and
// returns the new selection. A marquee under MinMarqueeSize on either side
// leaves the selection untouched.
func (c *Controller) EndMarquee(additive bool) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.marquee == nil {
		return nil, ErrNoGesture
	}
	r := c.marquee.rect
	c.marquee = nil
	c.phase = PhaseIdle

	if r.W < MinMarqueeSize || r.H < MinMarqueeSize {
		return append([]string{}, c.selected...), nil
	}

	hits := spatial.Intersecting(c.snapshot, r)
	if additive {
		seen := make(map[string]bool, len(c.selected))
		for _, id := range c.selected {
			seen[id] = true
		}
		for _, id := range hits {
			if !seen[id] {
				c.selected = append(c.selected, id)
			}
		}
	} else {
		c.selected = hits
	}
	c.emitSelection()
	return append([]string{}, c.selected...), nil
}
