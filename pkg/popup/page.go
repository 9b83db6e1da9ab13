package popup

// callbackPage is served at the redirect URI. The browser never sends the
// fragment to the server, so the page posts location.hash back itself.
const callbackPage = `<!DOCTYPE html>
<html>
	<head>
		<meta charset="utf-8">
		<title>Authorization</title>
	</head>
	<body>
		<h1 id="title">Completing authorization...</h1>
		<p id="detail"></p>
		<script>
			var body = new URLSearchParams();
			body.set("fragment", window.location.hash);
			history.replaceState(null, "", window.location.pathname);
			fetch("` + FragmentPath + `", { method: "POST", body: body })
				.then(function (resp) { return resp.json().then(function (data) { return { ok: resp.ok, data: data }; }); })
				.then(function (res) {
					if (res.ok) {
						document.getElementById("title").textContent = "Authorization Successful";
						document.getElementById("detail").textContent = "You can now close this window and return to the application.";
						window.close();
					} else {
						document.getElementById("title").textContent = "Authorization Failed";
						document.getElementById("detail").textContent = res.data.error || "unknown error";
					}
				})
				.catch(function (err) {
					document.getElementById("title").textContent = "Authorization Failed";
					document.getElementById("detail").textContent = String(err);
				});
		</script>
	</body>
</html>
`
