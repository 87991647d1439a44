package cookies

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// PasswordEnv overrides the Chrome "Safe Storage" password used for v11
// cookies on Linux and for every cookie on macOS.
const PasswordEnv = "CHATPILOT_SAFE_STORAGE_PASSWORD"

const (
	cookieSalt   = "saltysalt"
	keyLength    = 16
	hostHashSize = 32 // meta version >= 24 prefixes values with sha256(host)
	linuxV10Pass = "peanuts"
)

var errUnsupportedCipher = errors.New("unsupported cookie encryption")

// decrypter turns encrypted_value blobs into plaintext.
type decrypter struct {
	goos       string
	password   string // explicit Safe Storage password
	keychain   func(ctx context.Context) (string, error)
	iterations int

	mu   sync.Mutex
	keys map[string][]byte
}

func newDecrypter(password string) *decrypter {
	if password == "" {
		password = os.Getenv(PasswordEnv)
	}
	d := &decrypter{
		goos:     runtime.GOOS,
		password: password,
		keychain: macKeychainPassword,
		keys:     map[string][]byte{},
	}
	d.iterations = 1
	if d.goos == "darwin" {
		d.iterations = 1003
	}
	return d
}

// decrypt returns the plaintext of one cookie value.
func (d *decrypter) decrypt(ctx context.Context, enc []byte, metaVersion int) (string, error) {
	if len(enc) < 3 {
		return "", nil
	}
	prefix := string(enc[:3])
	if prefix != "v10" && prefix != "v11" {
		return "", errUnsupportedCipher
	}

	key, err := d.key(ctx, prefix)
	if err != nil {
		return "", err
	}
	plain, err := decryptCBC(key, enc[3:])
	if err != nil {
		return "", err
	}
	if metaVersion >= 24 && len(plain) >= hostHashSize {
		plain = plain[hostHashSize:]
	}
	return string(plain), nil
}

func (d *decrypter) key(ctx context.Context, prefix string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if k, ok := d.keys[prefix]; ok {
		return k, nil
	}

	pass := d.password
	switch {
	case d.goos == "linux" && prefix == "v10":
		pass = linuxV10Pass
	case pass == "" && d.goos == "darwin":
		p, err := d.keychain(ctx)
		if err != nil {
			return nil, err
		}
		pass = p
	case pass == "":
		return nil, fmt.Errorf("%s cookies need the Safe Storage password (set %s)", prefix, PasswordEnv)
	}

	k := pbkdf2.Key([]byte(pass), []byte(cookieSalt), d.iterations, keyLength, sha1.New)
	d.keys[prefix] = k
	return k, nil
}

func decryptCBC(key, data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("cookie ciphertext length %d is not a block multiple", len(data))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	iv := bytes.Repeat([]byte{' '}, aes.BlockSize)
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)

	pad := int(out[len(out)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(out) {
		return nil, errors.New("bad cookie padding (wrong Safe Storage password?)")
	}
	for _, b := range out[len(out)-pad:] {
		if int(b) != pad {
			return nil, errors.New("bad cookie padding (wrong Safe Storage password?)")
		}
	}
	return out[:len(out)-pad], nil
}

func macKeychainPassword(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "security", "find-generic-password", "-w", "-s", "Chrome Safe Storage").Output()
	if err != nil {
		return "", fmt.Errorf("read Chrome Safe Storage from keychain: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
