package views

import (
	"strings"

	"github.com/rivo/tview"

	"github.com/tgrandin/locachat/internal/chat"
)

// CreateForm collects the parameters for a new conversation.
type CreateForm struct {
	*tview.Form
	onCreate func(params chat.CreateParams)
	onCancel func()
}

// NewCreateForm creates the new-conversation form.
func NewCreateForm() *CreateForm {
	form := tview.NewForm()
	form.SetBorder(true).SetTitle(" New conversation ")

	f := &CreateForm{Form: form}

	kinds := []string{string(chat.TypeDirect), string(chat.TypeProperty), string(chat.TypeSupport)}
	form.AddDropDown("Type", kinds, 0, nil)
	form.AddInputField("Property id", "", 40, nil, nil)
	form.AddInputField("Participant ids (comma separated)", "", 40, nil, nil)
	form.AddInputField("Participant email", "", 40, nil, nil)
	form.AddButton("Create", func() {
		if f.onCreate != nil {
			f.onCreate(f.params())
		}
	})
	form.AddButton("Cancel", func() {
		if f.onCancel != nil {
			f.onCancel()
		}
	})

	return f
}

// SetOnCreate sets the callback when the form is submitted.
func (f *CreateForm) SetOnCreate(fn func(params chat.CreateParams)) {
	f.onCreate = fn
}

// SetOnCancel sets the callback when the form is dismissed.
func (f *CreateForm) SetOnCancel(fn func()) {
	f.onCancel = fn
}

// Reset clears all fields.
func (f *CreateForm) Reset() {
	f.GetFormItem(0).(*tview.DropDown).SetCurrentOption(0)
	for i := 1; i <= 3; i++ {
		f.GetFormItem(i).(*tview.InputField).SetText("")
	}
}

func (f *CreateForm) params() chat.CreateParams {
	_, kind := f.GetFormItem(0).(*tview.DropDown).GetCurrentOption()
	propertyID := strings.TrimSpace(f.GetFormItem(1).(*tview.InputField).GetText())
	rawIDs := f.GetFormItem(2).(*tview.InputField).GetText()
	email := strings.TrimSpace(f.GetFormItem(3).(*tview.InputField).GetText())

	var ids []string
	for _, part := range strings.Split(rawIDs, ",") {
		if p := strings.TrimSpace(part); p != "" {
			ids = append(ids, p)
		}
	}

	return chat.CreateParams{
		Type:             chat.ConversationType(kind),
		PropertyID:       propertyID,
		ParticipantIDs:   ids,
		ParticipantEmail: email,
	}
}
