package bilibili

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// mixinKeyEncTab is the fixed permutation the web player applies to the
// concatenated key fragments.
var mixinKeyEncTab = [64]int{
	46, 47, 18, 2, 53, 8, 23, 32, 15, 50, 10, 31, 58, 3, 45, 35,
	27, 43, 5, 49, 33, 9, 42, 19, 29, 28, 14, 39, 12, 38, 41, 13,
	37, 48, 7, 16, 24, 55, 40, 61, 26, 17, 0, 1, 60, 51, 30, 4,
	22, 25, 54, 21, 56, 59, 6, 63, 57, 62, 11, 36, 20, 34, 44, 52,
}

// mixinKeyLen is the length of the derived mixing key.
const mixinKeyLen = 32

// MixinKey derives the 32-character mixing key from the two fragments.
// Indices past the end of a short input are skipped.
func MixinKey(img, sub string) string {
	orig := img + sub

	var b strings.Builder
	b.Grow(mixinKeyLen)
	for _, idx := range mixinKeyEncTab {
		if b.Len() == mixinKeyLen {
			break
		}
		if idx < len(orig) {
			b.WriteByte(orig[idx])
		}
	}
	return b.String()
}

// wbiStripper removes the characters the web player drops from values
// before signing.
var wbiStripper = strings.NewReplacer("!", "", "'", "", "(", "", ")", "", "*", "")

// Signer appends wts and w_rid to a parameter set.
type Signer struct {
	// Now supplies the wts timestamp. Defaults to time.Now.
	Now func() time.Time
	// StripValues removes !'()* from every value before signing.
	StripValues bool
}

// NewSigner returns a Signer using the wall clock with value stripping on.
func NewSigner() *Signer {
	return &Signer{Now: time.Now, StripValues: true}
}

// Sign adds wts and w_rid to params in place and returns the canonical
// query string, ready to append after "?". Keys are sorted ascending and
// the digest is the lowercase hex MD5 of the query followed by the mixing
// key.
func (s *Signer) Sign(params url.Values, km KeyMaterial) string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	mixin := MixinKey(km.Img, km.Sub)
	params.Set("wts", strconv.FormatInt(now().Unix(), 10))
	params.Del("w_rid")

	if s.StripValues {
		for k, vs := range params {
			for i, v := range vs {
				vs[i] = wbiStripper.Replace(v)
			}
			params[k] = vs
		}
	}

	// Encode sorts by key. The web player escapes spaces as %20.
	query := strings.ReplaceAll(params.Encode(), "+", "%20")

	sum := md5.Sum([]byte(query + mixin))
	wRID := hex.EncodeToString(sum[:])
	params.Set("w_rid", wRID)

	return query + "&w_rid=" + wRID
}
