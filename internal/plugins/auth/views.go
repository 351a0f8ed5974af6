package auth

import (
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/adminconsole/internal/templates/layouts"
)

// LoginPage renders the sign-in screen.
func LoginPage(login, errMsg, successMsg string) templ.Component {
	return layouts.Base("Sign in", LoginForm(login, errMsg, successMsg))
}

// LoginForm is the sign-in form, also returned alone to HTMX requests.
func LoginForm(login, errMsg, successMsg string) templ.Component {
	return layouts.Component(func(h *layouts.HTML) {
		h.Raw(`<section class="card" id="login-form"><h1>Sign in</h1>`)
		if successMsg != "" {
			layouts.Flash(h, "success", successMsg)
		}
		if errMsg != "" {
			layouts.Flash(h, "error", errMsg)
		}
		h.Raw(`<form method="post" action="/login">`)
		layouts.CSRFField(h)
		h.Raw(`<label for="login">Email or username</label>`)
		h.Raw(`<input id="login" name="login" autocomplete="username" required`)
		h.Attr("value", login)
		h.Raw(`>`)
		h.Raw(`<label for="password">Password</label>`)
		h.Raw(`<input id="password" name="password" type="password" autocomplete="current-password" required>`)
		h.Raw(`<button type="submit">Continue</button></form>`)
		h.Raw(`<p><a href="/forgot-password">Forgot your password?</a></p></section>`)
	})
}

// ForgotPasswordPage renders the password reset request screen.
func ForgotPasswordPage(email, errMsg string) templ.Component {
	return layouts.Base("Reset password", ForgotPasswordForm(email, errMsg))
}

// ForgotPasswordForm asks for the account email and the new password. The
// password is only applied once the emailed code is verified.
func ForgotPasswordForm(email, errMsg string) templ.Component {
	return layouts.Component(func(h *layouts.HTML) {
		h.Raw(`<section class="card" id="forgot-form"><h1>Reset password</h1>`)
		if errMsg != "" {
			layouts.Flash(h, "error", errMsg)
		}
		h.Raw(`<form method="post" action="/forgot-password">`)
		layouts.CSRFField(h)
		h.Raw(`<label for="email">Email</label>`)
		h.Raw(`<input id="email" name="email" type="email" autocomplete="email" required`)
		h.Attr("value", email)
		h.Raw(`>`)
		h.Raw(`<label for="password">New password</label>`)
		h.Raw(`<input id="password" name="password" type="password" autocomplete="new-password" required>`)
		h.Raw(`<label for="confirm">Confirm new password</label>`)
		h.Raw(`<input id="confirm" name="confirm" type="password" autocomplete="new-password" required>`)
		h.Raw(`<button type="submit">Send code</button></form>`)
		h.Raw(`<p><a href="/login">Back to sign in</a></p></section>`)
	})
}

// VerifyView is what the OTP screen shows.
type VerifyView struct {
	Login         string
	PasswordReset bool
	Error         string
	Notice        string
	Remaining     time.Duration
}

// VerifyPage renders the OTP screen.
func VerifyPage(v VerifyView) templ.Component {
	return layouts.Base("Enter code", VerifyForm(v))
}

// VerifyForm is the OTP form with its resend control.
func VerifyForm(v VerifyView) templ.Component {
	return layouts.Component(func(h *layouts.HTML) {
		h.Raw(`<section class="card" id="verify-form"><h1>Enter code</h1><p>We sent a code to `)
		h.Text(maskLogin(v.Login))
		h.Raw(`.</p>`)
		if v.Error != "" {
			layouts.Flash(h, "error", v.Error)
		}
		if v.Notice != "" {
			layouts.Flash(h, "success", v.Notice)
		}

		h.Raw(`<form method="post" action="/login/verify">`)
		layouts.CSRFField(h)
		h.Raw(`<label for="otp">Code</label>`)
		h.Raw(`<input id="otp" name="otp" inputmode="numeric" autocomplete="one-time-code" required autofocus>`)
		if v.PasswordReset {
			h.Raw(`<button type="submit">Reset password</button></form>`)
		} else {
			h.Raw(`<button type="submit">Sign in</button></form>`)
		}

		h.Component(ResendControl(v.Remaining))

		h.Raw(`<form method="post" action="/login/cancel">`)
		layouts.CSRFField(h)
		h.Raw(`<button type="submit" class="link">Use a different account</button></form></section>`)
	})
}

// ResendControl is the resend button. While the cooldown runs it is disabled
// and counts down; the server enforces the cooldown regardless.
func ResendControl(remaining time.Duration) templ.Component {
	return layouts.Component(func(h *layouts.HTML) {
		secs := int((remaining + time.Second - 1) / time.Second)

		h.Raw(`<form method="post" action="/login/resend" id="resend-form">`)
		layouts.CSRFField(h)
		h.Raw(`<button type="submit" id="resend"`)
		h.Attr("data-remaining", strconv.Itoa(secs))
		if secs > 0 {
			h.Raw(` disabled>Resend code in `)
			h.Text(strconv.Itoa(secs))
			h.Raw(`s</button>`)
		} else {
			h.Raw(`>Resend code</button>`)
		}
		h.Raw(`</form>`)
		h.Raw(`<script>(function(){var b=document.getElementById("resend");var n=parseInt(b.dataset.remaining,10);` +
			`if(!(n>0))return;var t=setInterval(function(){n--;if(n<=0){clearInterval(t);b.disabled=false;b.textContent="Resend code";}` +
			`else{b.textContent="Resend code in "+n+"s";}},1000);})();</script>`)
	})
}

// maskLogin hides most of the local part of an email so the verify screen
// does not echo the full address.
func maskLogin(login string) string {
	at := strings.IndexByte(login, '@')
	if at <= 1 {
		return login
	}
	return login[:1] + strings.Repeat("*", at-1) + login[at:]
}
