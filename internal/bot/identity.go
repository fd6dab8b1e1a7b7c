package bot

import (
	"strconv"
	"strings"

	"github.com/valyala/fastrand"
)

var nicknameNumbers = []int{34, 42, 69, 101, 322, 404, 419, 420, 1, 2, 4, 8, 16, 32, 64, 128, 256, 512}

const cdkeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NextNickname returns "<basename>^<n>" with n picked from a fixed pool. The
// number of current is never picked again.
func NextNickname(basename, current string) string {
	candidates := nicknameNumbers
	if current != "" {
		idx := strings.LastIndexByte(current, '^')
		if n, err := strconv.Atoi(current[idx+1:]); err == nil {
			candidates = make([]int, 0, len(nicknameNumbers))
			for _, c := range nicknameNumbers {
				if c != n {
					candidates = append(candidates, c)
				}
			}
		}
	}

	n := candidates[fastrand.Uint32n(uint32(len(candidates)))]
	return basename + "^" + strconv.Itoa(n)
}

// NewCDKey returns five dash separated groups of four [A-Z0-9] characters.
func NewCDKey() string {
	var sb strings.Builder
	sb.Grow(24)
	for group := 0; group < 5; group++ {
		if group > 0 {
			sb.WriteByte('-')
		}
		for i := 0; i < 4; i++ {
			sb.WriteByte(cdkeyAlphabet[fastrand.Uint32n(uint32(len(cdkeyAlphabet)))])
		}
	}

	return sb.String()
}
