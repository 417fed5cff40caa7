package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/weekplan/internal/models"
	"github.com/julianstephens/weekplan/internal/validation"
)

type CellFormModel struct {
	Text       string
	Background string
	Foreground string
}

type SlotFormModel struct {
	Name string
}

func validateColor(s string) error {
	_, err := validation.ParseColor(s)
	return err
}

func validateSlotName(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("slot name cannot be empty")
	}
	return nil
}

// NewCellForm edits the text and colors of one cell.
func NewCellForm(fm *CellFormModel, slot string, day models.Weekday) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Text").
				Description(slot+" · "+day.String()).
				Value(&fm.Text),
			huh.NewInput().
				Title("Background").
				Placeholder("#1e1e1e").
				Value(&fm.Background).
				Validate(validateColor),
			huh.NewInput().
				Title("Foreground").
				Placeholder("#ffffff").
				Value(&fm.Foreground).
				Validate(validateColor),
		),
	).WithTheme(huh.ThemeDracula())
}

// NewSlotForm asks for a slot name, used by both add and rename.
func NewSlotForm(fm *SlotFormModel, title string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Placeholder("09:00 - 10:00").
				Value(&fm.Name).
				Validate(validateSlotName),
		),
	).WithTheme(huh.ThemeDracula())
}
