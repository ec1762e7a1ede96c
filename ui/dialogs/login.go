// Package dialogs provides the login form and the capture dialog.
package dialogs

import (
	"context"
	"errors"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"biodash/internal/app"
)

// LoginForm asks for credentials and opens a session.
type LoginForm struct {
	state  *app.State
	window fyne.Window

	userEntry *widget.Entry
	passEntry *widget.Entry
	loginBtn  *widget.Button
	message   *widget.Label

	onSuccess func(user string)
}

// NewLoginForm creates the form. onSuccess runs after a successful login.
func NewLoginForm(state *app.State, window fyne.Window, lastUser string, onSuccess func(user string)) *LoginForm {
	f := &LoginForm{
		state:     state,
		window:    window,
		userEntry: widget.NewEntry(),
		passEntry: widget.NewPasswordEntry(),
		message:   widget.NewLabel(""),
		onSuccess: onSuccess,
	}
	f.userEntry.SetPlaceHolder("User")
	f.userEntry.SetText(lastUser)
	f.passEntry.SetPlaceHolder("Password")
	f.passEntry.OnSubmitted = func(string) { f.submit() }
	f.loginBtn = widget.NewButton("Log in", f.submit)
	f.loginBtn.Importance = widget.HighImportance
	return f
}

// Content returns the form centered in the window.
func (f *LoginForm) Content() fyne.CanvasObject {
	title := widget.NewLabelWithStyle("Biomedical dashboard", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	form := widget.NewForm(
		widget.NewFormItem("User", f.userEntry),
		widget.NewFormItem("Password", f.passEntry),
	)
	box := container.NewVBox(title, form, f.loginBtn, f.message)
	return container.NewCenter(container.NewGridWrap(fyne.NewSize(360, 220), box))
}

// Focus puts the cursor in the first empty field.
func (f *LoginForm) Focus() {
	target := f.userEntry
	if f.userEntry.Text != "" {
		target = f.passEntry
	}
	f.window.Canvas().Focus(target)
}

func (f *LoginForm) submit() {
	user, pass := f.userEntry.Text, f.passEntry.Text
	f.loginBtn.Disable()
	f.message.SetText("Checking...")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := f.state.Login(ctx, user, pass)
		f.loginBtn.Enable()
		f.passEntry.SetText("")

		switch {
		case errors.Is(err, app.ErrBadCredentials):
			f.message.SetText(err.Error())
			return
		case app.IsHistoryUnavailable(err):
			dialog.ShowInformation("History", "This session will not be recorded:\n"+err.Error(), f.window)
		case err != nil:
			f.message.SetText(err.Error())
			return
		}
		f.message.SetText("")
		if f.onSuccess != nil {
			f.onSuccess(f.state.User())
		}
	}()
}
