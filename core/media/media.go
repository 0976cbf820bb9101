package media

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// ResourceKind is the delivery provider's classification of an uploaded file.
type ResourceKind string

const (
	KindImage ResourceKind = "image"
	KindVideo ResourceKind = "video"
	// KindRaw covers documents and any other non-media format. Office-document
	// formats must be uploaded as raw: the provider's "auto" detection
	// misclassifies them.
	KindRaw ResourceKind = "raw"
)

var AllKinds = []ResourceKind{KindImage, KindVideo, KindRaw}

func (k ResourceKind) Valid() bool {
	return k == KindImage || k == KindVideo || k == KindRaw
}

var (
	resourceKindTag  = "resourcekind"
	resourceKindText = "resource kind must be one of: image, video, raw"
)

func init() {
	_ = core.Validate.RegisterValidation(resourceKindTag, resourceKindValidation)
	core.RegisterCustomTranslation(core.Validate, core.Translator, resourceKindTag, resourceKindText)
}

func resourceKindValidation(fl validator.FieldLevel) bool {
	return ResourceKind(fl.Field().String()).Valid()
}
