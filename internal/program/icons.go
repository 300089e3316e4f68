package program

import "strings"

// DefaultIcon is used whenever a program has no icon or names one outside
// the vocabulary.
const DefaultIcon = "executable"

// IconNames is the fixed vocabulary the model may pick from. Generated code
// can also reference them as /icons/<name>.png.
var IconNames = []string{
	"plug",
	"address_book",
	"battery",
	"calendar",
	"camera",
	"audio",
	"certificate",
	"channels",
	"character_map",
	"chart",
	"clean_drive",
	"connected_world",
	"desktop",
	"fonts",
	"directx",
	"doctor",
	"globe",
	"hardware",
	"help_book",
	"help",
	"internet_wizard",
	"joystick",
	"keyboard",
	"keys",
	"mailbox",
	"minesweeper",
	"modem",
	"mouse",
	"mouse_trails",
	"agent",
	"agent_file",
	"error",
	"executable",
	"information",
	"warning",
	"multimedia",
	"arrow",
	"televisions",
	"newspaper",
	"note",
	"paint",
	"recycle_bin",
	"restrict",
	"scandisk",
	"scanner",
	"search",
	"sound",
	"spider",
	"standby",
	"themes",
	"time_date",
	"tools",
	"tree",
	"calendar_user",
	"users",
	"image_check",
	"windows",
	"magnifying_glass",
	"file",
	"world_star",
	"write_file",
	"write_yellow",
}

var iconSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(IconNames))
	for _, n := range IconNames {
		m[n] = struct{}{}
	}
	return m
}()

// ResolveIcon maps a model-supplied icon name onto the vocabulary, falling
// back to DefaultIcon for unknown or empty names.
func ResolveIcon(name string) string {
	name = strings.TrimSpace(name)
	if _, ok := iconSet[name]; ok {
		return name
	}
	return DefaultIcon
}
