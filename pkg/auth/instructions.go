package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExtractionGuide explains how to copy a logged-in cookie from
// a browser.
func ShowCookieExtractionGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "BILIBILI COOKIE GUIDE")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Anonymous requests work for most creators. A logged-in cookie helps")
	fmt.Fprintln(w, "when the platform starts answering -352 or -412.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Open https://space.bilibili.com in your browser and log in.")
	fmt.Fprintln(w, "2. Open Developer Tools (F12, or Cmd+Option+I on Mac).")
	fmt.Fprintln(w, "3. In the Network tab, reload and click any request to api.bilibili.com.")
	fmt.Fprintln(w, "4. Under Request Headers, copy the whole value of the 'Cookie:' line.")
	fmt.Fprintln(w, "5. Optionally copy 'User-Agent:' too, so both match the same browser.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The cookie should contain at least:")
	fmt.Fprintln(w, "   SESSDATA   login session")
	fmt.Fprintln(w, "   bili_jct   CSRF token, also used for the ticket request")
	fmt.Fprintln(w, "   buvid3     device id")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "SECURITY: this cookie grants full access to the account. It is stored")
	fmt.Fprintln(w, "in the system keychain or an encrypted file, never in the config.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
}

// ShowQuickExtractGuide shows a condensed version for experienced users
func ShowQuickExtractGuide(w io.Writer) {
	fmt.Fprintln(w, "F12 → Network → reload → any api.bilibili.com request → Request Headers → Cookie")
	fmt.Fprintln(w, "Needs SESSDATA=...; type 'help' for detailed instructions")
}
