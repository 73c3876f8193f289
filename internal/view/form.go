package view

import (
	"errors"
	"strings"

	"monthcal/internal/calendar"
	"monthcal/internal/timefield"
)

// FormPhase of the create-event form.
type FormPhase int

const (
	FormClosed FormPhase = iota
	FormEditing
	FormSubmitting
)

// Draft is the form's editable content.
type Draft struct {
	Title          string
	Description    string
	Date           calendar.Date
	StartTimeOfDay string
	EndTimeOfDay   string
}

// FormState is the create-event form state.
type FormState struct {
	Phase FormPhase
	Draft Draft

	// Err is a *ValidationError or *CreateError while the form is open.
	Err error

	DefaultStart string
	DefaultEnd   string
}

// NewFormState returns a closed form that opens with the given times.
func NewFormState(defaultStart, defaultEnd string) FormState {
	return FormState{DefaultStart: defaultStart, DefaultEnd: defaultEnd}
}

func (f FormState) IsOpen() bool { return f.Phase != FormClosed }

// FormMsg is a Msg understood by ApplyForm.
type FormMsg interface {
	Msg
	isFormMsg()
}

type (
	// OpenForm opens the form on Date. It is also the effect DayClicked
	// raises.
	OpenForm        struct{ Date calendar.Date }
	SetTitle        struct{ Value string }
	SetDescription  struct{ Value string }
	SetStart        struct{ Value string }
	SetEnd          struct{ Value string }
	Submit          struct{}
	CreateSucceeded struct{ ID int64 }
	CreateFailed    struct{ Err error }
	CloseForm       struct{}
)

// CreateRequest asks the Controller to call the store's create operation.
type CreateRequest struct {
	Title       string
	Description *string
	Start       string
	End         string
}

func (OpenForm) isMsg()        {}
func (SetTitle) isMsg()        {}
func (SetDescription) isMsg()  {}
func (SetStart) isMsg()        {}
func (SetEnd) isMsg()          {}
func (Submit) isMsg()          {}
func (CreateSucceeded) isMsg() {}
func (CreateFailed) isMsg()    {}
func (CloseForm) isMsg()       {}

func (OpenForm) isFormMsg()        {}
func (SetTitle) isFormMsg()        {}
func (SetDescription) isFormMsg()  {}
func (SetStart) isFormMsg()        {}
func (SetEnd) isFormMsg()          {}
func (Submit) isFormMsg()          {}
func (CreateSucceeded) isFormMsg() {}
func (CreateFailed) isFormMsg()    {}
func (CloseForm) isFormMsg()       {}

func (OpenForm) isEffect()      {}
func (CreateRequest) isEffect() {}

// ApplyForm is the form transition function.
func ApplyForm(f FormState, msg FormMsg) (FormState, []Effect) {
	if f.Phase == FormSubmitting {
		return applySubmitting(f, msg)
	}

	switch m := msg.(type) {
	case OpenForm:
		f.Phase = FormEditing
		f.Err = nil
		f.Draft = Draft{
			Date:           m.Date,
			StartTimeOfDay: f.DefaultStart,
			EndTimeOfDay:   f.DefaultEnd,
		}
		return f, nil

	case CloseForm:
		f.Phase = FormClosed
		f.Draft = Draft{}
		f.Err = nil
		return f, nil
	}

	if f.Phase != FormEditing {
		return f, nil
	}

	switch m := msg.(type) {
	case SetTitle:
		f.Draft.Title = m.Value
	case SetDescription:
		f.Draft.Description = m.Value
	case SetStart:
		f.Draft.StartTimeOfDay = m.Value
	case SetEnd:
		f.Draft.EndTimeOfDay = m.Value
	case Submit:
		req, err := f.Draft.Validate()
		if err != nil {
			f.Err = err
			return f, nil
		}
		f.Err = nil
		f.Phase = FormSubmitting
		return f, []Effect{req}
	}
	return f, nil
}

// applySubmitting waits for the create outcome; the draft cannot be edited,
// reopened or closed meanwhile.
func applySubmitting(f FormState, msg FormMsg) (FormState, []Effect) {
	switch m := msg.(type) {
	case CreateSucceeded:
		f.Phase = FormClosed
		f.Draft = Draft{}
		f.Err = nil
		return f, []Effect{EventCreated{ID: m.ID}}
	case CreateFailed:
		f.Phase = FormEditing
		f.Err = &CreateError{Err: m.Err}
		return f, nil
	}
	return f, nil
}

// Validate checks the draft and encodes it into a create request.
func (d Draft) Validate() (CreateRequest, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return CreateRequest{}, &ValidationError{Field: "title", Msg: "title is required"}
	}
	if !d.Date.Valid() {
		return CreateRequest{}, &ValidationError{Field: "date", Msg: "no day selected"}
	}
	st, err := timefield.ParseTimeOfDay(d.StartTimeOfDay)
	if err != nil {
		return CreateRequest{}, &ValidationError{Field: "start", Msg: "start time must be HH:MM", Err: err}
	}
	et, err := timefield.ParseTimeOfDay(d.EndTimeOfDay)
	if err != nil {
		return CreateRequest{}, &ValidationError{Field: "end", Msg: "end time must be HH:MM", Err: err}
	}
	if st.Minutes() >= et.Minutes() {
		return CreateRequest{}, &ValidationError{Field: "end", Msg: "end time must be after start time"}
	}

	start, end, err := timefield.Encode(d.Date, st.String(), et.String())
	if err != nil {
		return CreateRequest{}, &ValidationError{Field: "date", Msg: "cannot encode times", Err: err}
	}

	req := CreateRequest{Title: title, Start: start, End: end}
	if desc := strings.TrimSpace(d.Description); desc != "" {
		req.Description = &desc
	}
	return req, nil
}

// IsValidation reports whether err is a form validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
