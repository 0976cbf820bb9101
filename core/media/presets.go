package media

import "github.com/trezcool/darasa/core"

// PresetConfig is the contract consumed and produced by preset reconciliation
// (the provider's named upload channel configuration).
type PresetConfig struct {
	Name                string       `json:"name"`
	Unsigned            bool         `json:"unsigned"`
	Folder              string       `json:"folder"`
	ResourceKind        ResourceKind `json:"resource_kind"`
	UseOriginalFilename bool         `json:"use_filename"`
	UniqueFilename      bool         `json:"unique_filename"`
}

// preset names; one upload channel per resource kind
const (
	presetImage = "darasa_image"
	presetVideo = "darasa_video"
	presetRaw   = "darasa_raw"
)

var kindPresets = map[ResourceKind]string{
	KindImage: presetImage,
	KindVideo: presetVideo,
	KindRaw:   presetRaw,
}

// ChoosePreset maps a declared resource kind to the upload channel it must go
// through. This mapping is the single source of truth: uploads and preset
// reconciliation both consume it.
func ChoosePreset(kind ResourceKind) string {
	if name, ok := kindPresets[kind]; ok {
		return name
	}
	// unknown kinds are stored untouched, never auto-detected
	return presetRaw
}

// Presets returns the desired configuration of every upload channel.
func Presets() []PresetConfig {
	folder := core.Conf.Media.Folder
	configs := make([]PresetConfig, 0, len(AllKinds))
	for _, kind := range AllKinds {
		configs = append(configs, PresetConfig{
			Name:                ChoosePreset(kind),
			Unsigned:            true,
			Folder:              folder,
			ResourceKind:        kind,
			UseOriginalFilename: true,
			UniqueFilename:      true,
		})
	}
	return configs
}
