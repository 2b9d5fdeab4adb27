package model

import "time"

// Animation is an attribute animation command for an overlay entity.
// Name identifies the slot on the entity; setting a new animation with the
// same name replaces the running one.
type Animation struct {
	Name      string        `json:"name"`
	Property  string        `json:"property"` // scale, rotation, position
	From      *Vec3         `json:"from,omitempty"`
	To        Vec3          `json:"to"`
	Duration  time.Duration `json:"duration"`
	Delay     time.Duration `json:"delay,omitempty"`
	Easing    string        `json:"easing"`
	Loop      bool          `json:"loop,omitempty"`
	Alternate bool          `json:"alternate,omitempty"`
}
