package tracking

import (
	"time"

	"github.com/okian/arsteady/internal/domain/model"
)

// Animation slot names on the overlay entity.
const (
	AnimationMain  = "animation"
	AnimationSpin  = "animation__rotation"
	AnimationClick = "animation__click"
)

// EnterAnimation scales the overlay in when its target is shown.
func EnterAnimation() model.Animation {
	return model.Animation{
		Name:     AnimationMain,
		Property: "scale",
		From:     model.V(0, 0, 0),
		To:       model.Vec3{1, 1, 1},
		Duration: 500 * time.Millisecond,
		Easing:   "easeOutElastic",
	}
}

// SpinAnimation rotates the overlay forever once the enter animation ends.
func SpinAnimation() model.Animation {
	return model.Animation{
		Name:     AnimationSpin,
		Property: "rotation",
		To:       model.Vec3{0, 360, 0},
		Duration: 5 * time.Second,
		Delay:    500 * time.Millisecond,
		Easing:   "linear",
		Loop:     true,
	}
}

// ExitAnimation scales the overlay out when its target is hidden.
func ExitAnimation() model.Animation {
	return model.Animation{
		Name:     AnimationMain,
		Property: "scale",
		From:     model.V(1, 1, 1),
		To:       model.Vec3{0, 0, 0},
		Duration: 300 * time.Millisecond,
		Easing:   "easeInQuart",
	}
}

// ClickAnimation pulses the overlay once.
func ClickAnimation() model.Animation {
	return model.Animation{
		Name:      AnimationClick,
		Property:  "scale",
		From:      model.V(1, 1, 1),
		To:        model.Vec3{1.2, 1.2, 1.2},
		Duration:  200 * time.Millisecond,
		Easing:    "easeInOutQuad",
		Alternate: true,
	}
}
