package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

var resetPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8" />
<meta name="viewport" content="width=device-width, initial-scale=1.0" />
<title>Aktivo Password Reset</title>
<style>
body { font-family: Arial, sans-serif; margin: 0; background: linear-gradient(135deg,#0f9d58,#1a73e8); color: #fff; min-height: 100vh; display: flex; flex-direction: column; }
main { flex: 1; display: flex; justify-content: center; align-items: center; padding: 40px 20px; }
.card { background: #fff; color: #333; padding: 28px; border-radius: 8px; width: 90%; max-width: 420px; box-shadow: 0 10px 40px rgba(0,0,0,0.25); }
.card h1 { font-size: 22px; margin-top: 0; }
.step { display: none; }
.step.active { display: block; }
input { width: 100%; padding: 10px; margin: 8px 0; border: 1px solid #ccc; border-radius: 4px; box-sizing: border-box; }
button { width: 100%; margin-top: 10px; padding: 12px; font-size: 16px; border: none; border-radius: 4px; cursor: pointer; background: #1a73e8; color: #fff; }
button:hover { background: #1558b0; }
.note { font-size: 13px; color: #666; }
.error { color: #c5221f; font-size: 14px; min-height: 18px; }
footer { text-align: center; padding: 20px; font-size: 14px; opacity: 0.8; }
</style>
</head>
<body>
<main>
  <div class="card">
    <h1>Reset your Aktivo password</h1>
    <p class="error" id="error"></p>

    <div class="step active" id="step-request">
      <form onsubmit="return requestCode(event)">
        <input type="email" name="email" placeholder="Email" required />
        <button type="submit">Send reset code</button>
      </form>
      <p class="note">We will email you a short-lived one-time code.</p>
    </div>

    <div class="step" id="step-verify">
      <form onsubmit="return verifyCode(event)">
        <input type="text" name="code" placeholder="6-digit code" inputmode="numeric" required />
        <button type="submit">Verify code</button>
      </form>
      <p class="note">Check your inbox. The code expires in a few minutes.</p>
    </div>

    <div class="step" id="step-confirm">
      <form onsubmit="return confirmReset(event)">
        <input type="password" name="password" placeholder="New password" required />
        <input type="password" name="confirm_password" placeholder="Repeat new password" required />
        <button type="submit">Set new password</button>
      </form>
    </div>

    <div class="step" id="step-done">
      <p>Your password has been updated. You can log in with it now.</p>
    </div>
  </div>
</main>
<footer>Aktivo account recovery</footer>
<script>
const state = { email: '', otpId: '', resetToken: '' };

function show(step) {
  document.querySelectorAll('.step').forEach(el => el.classList.remove('active'));
  document.getElementById(step).classList.add('active');
  document.getElementById('error').textContent = '';
}

async function post(path, body) {
  const response = await fetch(path, {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify(body)
  });
  const data = await response.json();
  if (!response.ok) {
    let message = data.error || 'Something went wrong';
    if (data.retry_after) message += ' (retry in ' + data.retry_after + 's)';
    if (data.attempts_left !== undefined) message += ' (' + data.attempts_left + ' attempts left)';
    throw new Error(message);
  }
  return data;
}

async function requestCode(event) {
  event.preventDefault();
  const form = new FormData(event.target);
  try {
    state.email = form.get('email');
    const data = await post('/api/v1/auth/password-reset/request', { email: state.email });
    state.otpId = data.otp_id;
    show('step-verify');
  } catch (err) {
    document.getElementById('error').textContent = err.message;
  }
}

async function verifyCode(event) {
  event.preventDefault();
  const form = new FormData(event.target);
  try {
    const data = await post('/api/v1/auth/password-reset/verify', {
      otp_id: state.otpId,
      code: form.get('code'),
      email: state.email
    });
    state.resetToken = data.reset_token;
    show('step-confirm');
  } catch (err) {
    document.getElementById('error').textContent = err.message;
  }
}

async function confirmReset(event) {
  event.preventDefault();
  const form = new FormData(event.target);
  try {
    await post('/api/v1/auth/password-reset/confirm', {
      email: state.email,
      token: state.resetToken,
      password: form.get('password'),
      confirm_password: form.get('confirm_password')
    });
    show('step-done');
  } catch (err) {
    document.getElementById('error').textContent = err.message;
  }
}
</script>
</body>
</html>`

// RegisterPages serves the built-in recovery page. Production frontends link
// here from the "forgot password" flow; the page drives the same JSON API.
func RegisterPages(e *echo.Echo) {
	e.GET("/reset-password", func(c echo.Context) error {
		return c.HTML(http.StatusOK, resetPageHTML)
	})
}
