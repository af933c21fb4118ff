package server

import (
	"fmt"
	"net/http"
)

// Inline pages. The HTML surface is deliberately minimal; the service is
// subscription plumbing, not a web frontend.

const homePage = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<title>Newsletter</title>
</head>
<body>
	<h1>Welcome to our newsletter!</h1>
	<form action="/subscriptions" method="post">
		<label>Name
			<input type="text" name="name" placeholder="Enter your name">
		</label>
		<label>Email
			<input type="email" name="email" placeholder="Enter your email">
		</label>
		<button type="submit">Subscribe</button>
	</form>
</body>
</html>`

const loginPage = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<title>Login</title>
</head>
<body>
	%s<form action="/login" method="post">
		<label>Username
			<input type="text" name="username" placeholder="Enter username">
		</label>
		<label>Password
			<input type="password" name="password" placeholder="Enter password">
		</label>
		<button type="submit">Login</button>
	</form>
</body>
</html>`

const dashboardPage = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<title>Admin dashboard</title>
</head>
<body>
	<p>Welcome %s!</p>
	<form action="/admin/logout" method="post">
		<button type="submit">Logout</button>
	</form>
</body>
</html>`

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, homePage)
}
