package meteogram

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FlowResultType tells the client what to do with a flow result.
type FlowResultType string

const (
	FlowResultForm        FlowResultType = "form"
	FlowResultCreateEntry FlowResultType = "create_entry"
	FlowResultAbort       FlowResultType = "abort"
)

const (
	StepUser = "user"
	StepInit = "init"

	errorBase            = "base"
	errorInvalidLocation = "invalid_location"
	errorUnknown         = "unknown"
	abortAlreadyConfig   = "already_configured"
)

// SchemaField describes one input of a form.
type SchemaField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
	Default  any    `json:"default,omitempty"`
}

// FlowResult is the outcome of one flow step.
type FlowResult struct {
	Type       FlowResultType    `json:"type"`
	StepID     string            `json:"step_id,omitempty"`
	DataSchema []SchemaField     `json:"data_schema,omitempty"`
	Errors     map[string]string `json:"errors"`
	Title      string            `json:"title,omitempty"`
	Data       any               `json:"data,omitempty"`
	Reason     string            `json:"reason,omitempty"`

	// Entry is the created or updated entry, when there is one.
	Entry *Entry `json:"-"`
}

// UserInput is the form submitted in the user step.
type UserInput struct {
	LocationID string `json:"location_id" validate:"required,locationid"`
	Flags
}

var (
	locationIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

	validate = newValidate()
)

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("locationid", func(fl validator.FieldLevel) bool {
		return locationIDPattern.MatchString(fl.Field().String())
	})
	return v
}

// ConfigFlow creates entries from user input and edits their options.
type ConfigFlow struct {
	validator *Validator
	store     Store
	log       *zap.Logger
	now       func() time.Time
}

// NewConfigFlow creates a new ConfigFlow.
func NewConfigFlow(v *Validator, store Store, log *zap.Logger) *ConfigFlow {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConfigFlow{
		validator: v,
		store:     store,
		log:       log,
		now:       time.Now,
	}
}

// UserSchema is the form of the user step.
func UserSchema() []SchemaField {
	return []SchemaField{
		{Name: "location_id", Type: "string", Required: true},
		{Name: "dark_mode", Type: "boolean", Default: DefaultDarkMode},
		{Name: "crop", Type: "boolean", Default: DefaultCrop},
		{Name: "make_transparent", Type: "boolean", Default: DefaultMakeTransparent},
		{Name: "unhide_dark_objects", Type: "boolean", Default: DefaultUnhideDarkObjects},
	}
}

// StepUser handles the initial step. A nil input shows the empty form.
func (f *ConfigFlow) StepUser(ctx context.Context, in *UserInput) FlowResult {
	if in == nil {
		return userForm(map[string]string{})
	}

	in.LocationID = strings.TrimSpace(in.LocationID)
	if errs := schemaErrors(in); len(errs) > 0 {
		return userForm(errs)
	}

	settings := ResolveFlags(in.Flags)
	title, err := f.validator.Validate(ctx, in.LocationID, settings)
	switch {
	case errors.Is(err, ErrValidation):
		return userForm(map[string]string{errorBase: errorInvalidLocation})
	case err != nil:
		f.log.Error("unexpected exception", zap.String("location_id", in.LocationID), zap.Error(err))
		return userForm(map[string]string{errorBase: errorUnknown})
	}

	uniqueID := UniqueID(in.LocationID, settings)
	if _, ok := f.store.FindByUniqueID(uniqueID); ok {
		return FlowResult{Type: FlowResultAbort, Reason: abortAlreadyConfig}
	}

	entry := Entry{
		ID:       uuid.NewString(),
		Domain:   Domain,
		Title:    title,
		UniqueID: uniqueID,
		Data: EntryData{
			LocationID: in.LocationID,
			Flags:      settings.Flags(),
		},
		CreatedAt: f.now().UTC(),
	}
	if err := f.store.Add(entry); err != nil {
		if errors.Is(err, ErrAlreadyConfigured) {
			return FlowResult{Type: FlowResultAbort, Reason: abortAlreadyConfig}
		}
		f.log.Error("failed to persist entry", zap.String("unique_id", uniqueID), zap.Error(err))
		return userForm(map[string]string{errorBase: errorUnknown})
	}

	f.log.Info("entry created",
		zap.String("entry_id", entry.ID),
		zap.String("title", entry.Title),
		zap.String("unique_id", entry.UniqueID),
	)
	return FlowResult{
		Type:  FlowResultCreateEntry,
		Title: entry.Title,
		Data:  entry.Data,
		Entry: &entry,
	}
}

// StepInit handles the options step of an existing entry. A nil input shows
// the form prefilled with the currently resolved settings.
func (f *ConfigFlow) StepInit(entryID string, in *Flags) (FlowResult, error) {
	entry, err := f.store.Get(entryID)
	if err != nil {
		return FlowResult{}, err
	}

	if in == nil {
		return optionsForm(Resolve(entry)), nil
	}

	updated, err := f.store.UpdateOptions(entryID, *in)
	if err != nil {
		return FlowResult{}, err
	}
	f.log.Info("entry options updated",
		zap.String("entry_id", entryID),
		zap.Any("settings", Resolve(updated)),
	)
	return FlowResult{
		Type:  FlowResultCreateEntry,
		Data:  updated.Options,
		Entry: &updated,
	}, nil
}

func userForm(errs map[string]string) FlowResult {
	return FlowResult{
		Type:       FlowResultForm,
		StepID:     StepUser,
		DataSchema: UserSchema(),
		Errors:     errs,
	}
}

func optionsForm(current Settings) FlowResult {
	return FlowResult{
		Type:   FlowResultForm,
		StepID: StepInit,
		DataSchema: []SchemaField{
			{Name: "dark_mode", Type: "boolean", Default: current.DarkMode},
			{Name: "crop", Type: "boolean", Default: current.Crop},
			{Name: "make_transparent", Type: "boolean", Default: current.MakeTransparent},
			{Name: "unhide_dark_objects", Type: "boolean", Default: current.UnhideDarkObjects},
		},
		Errors: map[string]string{},
	}
}

func schemaErrors(in *UserInput) map[string]string {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{errorBase: errorUnknown}
	}
	errs := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		code := "invalid"
		if fe.Tag() == "required" {
			code = "required"
		}
		errs[fe.Field()] = code
	}
	return errs
}
