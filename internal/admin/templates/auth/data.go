package auth

// LoginPageData is the state of the sign-in screen.
type LoginPageData struct {
	Action      string
	CSRFToken   string
	Next        string
	Email       string
	Remember    bool
	Notice      string
	Error       string
	Environment string
}

// HasFeedback reports whether a notice or an error is shown above the form.
func (d LoginPageData) HasFeedback() bool {
	return d.Notice != "" || d.Error != ""
}
