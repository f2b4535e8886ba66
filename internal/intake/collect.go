// Package intake gathers the destination list, interactively or from a file.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"drone-dispatch/internal/geocode"
	"drone-dispatch/internal/logger"
	"drone-dispatch/internal/mission"
)

const (
	categoryPrompt = "\tIf yes, please enter the number corresponding to the category: "
	addressPrompt  = "Enter the address of the destination: "
	morePrompt     = "Do you need to add more destinations? (Y/N): "
)

// Prompter is the operator's terminal.
type Prompter interface {
	Println(line string)
	// Ask shows prompt and returns the trimmed answer.
	Ask(ctx context.Context, prompt string) (string, error)
}

type Collector struct {
	Prompter Prompter
	Geocoder geocode.Geocoder
}

// Collect runs input rounds until the operator declines to add more. Each
// round appends exactly one destination, in entry order. An address that
// cannot be geocoded is reported and kept as an unresolved destination.
func (c *Collector) Collect(ctx context.Context) ([]mission.Destination, error) {
	if c.Geocoder == nil {
		return nil, errors.New("intake: no geocoder configured")
	}
	var out []mission.Destination
	for {
		d, err := c.round(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, d)
		logger.Log.Info("destination added",
			slog.Int("index", len(out)),
			slog.String("category", d.Category.String()),
			slog.Bool("resolved", d.Resolved()),
		)

		more, err := c.Prompter.Ask(ctx, "\n"+morePrompt)
		if err != nil {
			return out, fmt.Errorf("read answer: %w", err)
		}
		if !yes(more) {
			return out, nil
		}
	}
}

func (c *Collector) round(ctx context.Context) (mission.Destination, error) {
	c.Prompter.Println(Menu())
	c.Prompter.Println("\tDo any of the above categories define the current situation?")
	choice, err := c.Prompter.Ask(ctx, categoryPrompt)
	if err != nil {
		return mission.Destination{}, fmt.Errorf("read category: %w", err)
	}

	d := mission.Destination{Category: mission.ParseCategory(choice)}
	if d.Category.Known() {
		c.Prompter.Println(fmt.Sprintf("Drone to be dispatched with %q.", d.Payload()))
	} else {
		c.Prompter.Println("No listed category matches; the drone will fly without a payload.")
	}

	d.Address, err = c.Prompter.Ask(ctx, addressPrompt)
	if err != nil {
		return mission.Destination{}, fmt.Errorf("read address: %w", err)
	}

	place, err := c.Geocoder.Resolve(ctx, d.Address)
	if err != nil {
		if ctx.Err() != nil {
			return mission.Destination{}, ctx.Err()
		}
		logger.Log.Warn("address not resolved", slog.String("address", d.Address), slog.String("error", err.Error()))
		c.Prompter.Println(fmt.Sprintf("Could not locate %q: %v", d.Address, err))
		return d, nil
	}
	c.Prompter.Println(place.Address)
	c.Prompter.Println(place.Coordinate.String())
	coord := place.Coordinate
	d.Coordinate = &coord
	return d, nil
}

// Menu renders the numbered category list.
func Menu() string {
	var b strings.Builder
	for i, cat := range mission.Categories {
		fmt.Fprintf(&b, "\t%d. %s", cat.MenuNumber(), cat.Title())
		if i < len(mission.Categories)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func yes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}
