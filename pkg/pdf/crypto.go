package pdf

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
)

// cryptoMethod is the algorithm strings and streams are protected with.
type cryptoMethod int

const (
	cryptoRC4 cryptoMethod = iota
	cryptoAESV2
	cryptoAESV3
)

// passwordPadding is the 32-byte pad from the standard security handler.
var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// securityHandler implements the standard security handler for the
// encryption schemes the loader accepts: RC4 (V1/V2), AES-128 (V4
// /AESV2) and AES-256 (V5 R5/R6, /AESV3).
type securityHandler struct {
	method    cryptoMethod
	revision  int
	keyLength int // bytes
	perms     int32
	ownerKey  []byte // O
	userKey   []byte // U
	userEnc   []byte // UE, AES-256 only
	docID     []byte // first element of the trailer ID
	encMeta   bool

	key []byte // derived file key, set by authenticate
}

// newSecurityHandler reads the Encrypt dictionary. Only the Standard
// filter is supported; anything else fails as unsupported.
func (f *File) newSecurityHandler(encDict Dictionary) (*securityHandler, error) {
	if name, _ := encDict.GetName("Filter"); name != "Standard" {
		return nil, fmt.Errorf("unsupported security filter %q", name)
	}

	sh := &securityHandler{encMeta: true, keyLength: 5}
	v, _ := encDict.GetInt("V")
	r, _ := encDict.GetInt("R")
	sh.revision = int(r)
	if length, ok := encDict.GetInt("Length"); ok {
		sh.keyLength = int(length) / 8
	}
	if p, ok := encDict.GetInt("P"); ok {
		sh.perms = int32(p)
	}
	if o, ok := encDict.Get("O").(String); ok {
		sh.ownerKey = o.Value
	}
	if u, ok := encDict.Get("U").(String); ok {
		sh.userKey = u.Value
	}
	if ue, ok := encDict.Get("UE").(String); ok {
		sh.userEnc = ue.Value
	}
	if em, ok := encDict.Get("EncryptMetadata").(Boolean); ok {
		sh.encMeta = bool(em)
	}
	if ids, ok := f.trailer.GetArray("ID"); ok && len(ids) > 0 {
		if s, ok := ids[0].(String); ok {
			sh.docID = s.Value
		}
	}

	switch v {
	case 1:
		sh.method = cryptoRC4
		sh.keyLength = 5
	case 2:
		sh.method = cryptoRC4
	case 4:
		// The crypt filter map is only consulted for the standard
		// /StdCF name; RC4 inside V4 is reported through /CFM V2.
		sh.method = cryptoAESV2
		if cf, ok := encDict.Get("CF").(Dictionary); ok {
			if std, ok := cf.Get("StdCF").(Dictionary); ok {
				if cfm, _ := std.GetName("CFM"); cfm == "V2" {
					sh.method = cryptoRC4
				}
			}
		}
		if sh.keyLength == 5 {
			sh.keyLength = 16
		}
	case 5:
		sh.method = cryptoAESV3
		sh.keyLength = 32
	default:
		return nil, fmt.Errorf("unsupported encryption version V=%d", v)
	}
	if sh.keyLength > 16 && sh.method != cryptoAESV3 {
		sh.keyLength = 16
	}
	return sh, nil
}

// authenticate derives the file key from the password, trying it as the
// user password first and as the owner password second.
func (sh *securityHandler) authenticate(password string) bool {
	if sh.method == cryptoAESV3 {
		return sh.authenticateV5(password)
	}
	if sh.authenticateUser(password) {
		return true
	}
	return sh.authenticateOwner(password)
}

func (sh *securityHandler) authenticateUser(password string) bool {
	key := sh.computeFileKey(password)
	computed := sh.computeUserValue(key)

	n := len(sh.userKey)
	if sh.revision >= 3 {
		n = 16
	}
	if len(computed) < n || len(sh.userKey) < n {
		return false
	}
	if !bytes.Equal(computed[:n], sh.userKey[:n]) {
		return false
	}
	sh.key = key
	return true
}

// authenticateOwner decrypts the user password out of O and retries.
func (sh *securityHandler) authenticateOwner(password string) bool {
	hash := md5.Sum(padPassword(password))
	if sh.revision >= 3 {
		for i := 0; i < 50; i++ {
			hash = md5.Sum(hash[:])
		}
	}
	key := hash[:sh.keyLength]

	userPwd := make([]byte, len(sh.ownerKey))
	copy(userPwd, sh.ownerKey)
	if sh.revision >= 3 {
		for i := 19; i >= 0; i-- {
			tmp := make([]byte, len(key))
			for j := range key {
				tmp[j] = key[j] ^ byte(i)
			}
			c, _ := rc4.NewCipher(tmp)
			c.XORKeyStream(userPwd, userPwd)
		}
	} else {
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(userPwd, userPwd)
	}
	return sh.authenticateUser(string(userPwd))
}

// computeFileKey is Algorithm 2 of the standard handler.
func (sh *securityHandler) computeFileKey(password string) []byte {
	h := md5.New()
	h.Write(padPassword(password))
	h.Write(sh.ownerKey)
	p := sh.perms
	h.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	h.Write(sh.docID)
	if sh.revision >= 4 && !sh.encMeta {
		h.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	hash := h.Sum(nil)

	if sh.revision >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(hash[:sh.keyLength])
			hash = sum[:]
		}
	}
	return hash[:sh.keyLength]
}

// computeUserValue is Algorithms 4 and 5: the U entry expected for a
// correctly derived key.
func (sh *securityHandler) computeUserValue(key []byte) []byte {
	if sh.revision < 3 {
		c, _ := rc4.NewCipher(key)
		out := make([]byte, 32)
		c.XORKeyStream(out, passwordPadding)
		return out
	}

	h := md5.New()
	h.Write(passwordPadding)
	h.Write(sh.docID)
	hash := h.Sum(nil)

	c, _ := rc4.NewCipher(key)
	out := make([]byte, 16)
	c.XORKeyStream(out, hash[:16])
	for i := 1; i <= 19; i++ {
		tmp := make([]byte, len(key))
		for j := range key {
			tmp[j] = key[j] ^ byte(i)
		}
		c, _ := rc4.NewCipher(tmp)
		c.XORKeyStream(out, out)
	}
	padded := make([]byte, 32)
	copy(padded, out)
	return padded
}

// authenticateV5 is Algorithm 2.A: the AES-256 user-password check plus
// file-key recovery from UE.
func (sh *securityHandler) authenticateV5(password string) bool {
	if len(sh.userKey) < 48 || len(sh.userEnc) < 32 {
		return false
	}
	pwd := []byte(password)
	if len(pwd) > 127 {
		pwd = pwd[:127]
	}
	valSalt := sh.userKey[32:40]
	keySalt := sh.userKey[40:48]

	if !bytes.Equal(sh.hash2B(pwd, valSalt), sh.userKey[:32]) {
		return false
	}

	ikey := sh.hash2B(pwd, keySalt)
	block, err := aes.NewCipher(ikey)
	if err != nil {
		return false
	}
	fileKey := make([]byte, 32)
	iv := make([]byte, 16)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(fileKey, sh.userEnc[:32])
	sh.key = fileKey
	return true
}

// hash2B is the R6 hardened hash (Algorithm 2.B); R5 reduces to a
// single SHA-256.
func (sh *securityHandler) hash2B(password, salt []byte) []byte {
	sum := sha256.Sum256(append(append([]byte{}, password...), salt...))
	k := sum[:]
	if sh.revision < 6 {
		return k
	}

	var e []byte
	for count := 1; ; count++ {
		k1 := make([]byte, 0, 64*(len(password)+len(k)))
		for i := 0; i < 64; i++ {
			k1 = append(k1, password...)
			k1 = append(k1, k...)
		}
		block, err := aes.NewCipher(k[:16])
		if err != nil {
			return k
		}
		e = make([]byte, len(k1))
		cipher.NewCBCEncrypter(block, k[16:32]).CryptBlocks(e, k1)

		sum := 0
		for _, b := range e[:16] {
			sum += int(b)
		}
		switch sum % 3 {
		case 0:
			s := sha256.Sum256(e)
			k = s[:]
		case 1:
			s := sha512.Sum384(e)
			k = s[:]
		case 2:
			s := sha512.Sum512(e)
			k = s[:]
		}
		if count >= 64 && int(e[len(e)-1]) <= count-32 {
			break
		}
	}
	return k[:32]
}

// objectKey derives the per-object key. AES-256 uses the file key
// directly.
func (sh *securityHandler) objectKey(num, gen int) []byte {
	if sh.method == cryptoAESV3 {
		return sh.key
	}
	h := md5.New()
	h.Write(sh.key)
	h.Write([]byte{byte(num), byte(num >> 8), byte(num >> 16)})
	h.Write([]byte{byte(gen), byte(gen >> 8)})
	if sh.method == cryptoAESV2 {
		h.Write([]byte("sAlT"))
	}
	hash := h.Sum(nil)

	n := len(sh.key) + 5
	if n > 16 {
		n = 16
	}
	return hash[:n]
}

// decrypt decrypts one string or stream payload belonging to object
// num/gen. RC4 output is written in place on a copy; AES strips the IV
// prefix and PKCS#7 padding.
func (sh *securityHandler) decrypt(data []byte, num, gen int) ([]byte, error) {
	key := sh.objectKey(num, gen)
	if sh.method == cryptoRC4 {
		c, err := rc4.NewCipher(key)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(data))
		c.XORKeyStream(out, data)
		return out, nil
	}

	if len(data) < aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("bad AES payload length %d", len(data))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data)-aes.BlockSize)
	cipher.NewCBCDecrypter(block, data[:aes.BlockSize]).CryptBlocks(out, data[aes.BlockSize:])
	if n := len(out); n > 0 {
		if pad := int(out[n-1]); pad >= 1 && pad <= aes.BlockSize && pad <= n {
			out = out[:n-pad]
		}
	}
	return out, nil
}

// decryptObject walks obj and decrypts every string and stream payload
// in place of the original values. Dictionaries and arrays are rebuilt
// so cached plaintext never aliases ciphertext.
func (sh *securityHandler) decryptObject(obj Object, num, gen int) Object {
	switch v := obj.(type) {
	case String:
		plain, err := sh.decrypt(v.Value, num, gen)
		if err != nil {
			return v
		}
		return String{Value: plain, Hex: v.Hex}
	case Array:
		out := make(Array, len(v))
		for i, item := range v {
			out[i] = sh.decryptObject(item, num, gen)
		}
		return out
	case Dictionary:
		out := make(Dictionary, len(v))
		for k, item := range v {
			out[k] = sh.decryptObject(item, num, gen)
		}
		return out
	case Stream:
		dict, _ := sh.decryptObject(v.Dict, num, gen).(Dictionary)
		// XRef streams are never encrypted; neither is a stream that
		// opts out through an Identity crypt filter.
		if typ, _ := v.Dict.GetName("Type"); typ == "XRef" {
			return Stream{Dict: dict, Raw: v.Raw}
		}
		raw, err := sh.decrypt(v.Raw, num, gen)
		if err != nil {
			return Stream{Dict: dict, Raw: v.Raw}
		}
		return Stream{Dict: dict, Raw: raw}
	default:
		return obj
	}
}

func padPassword(password string) []byte {
	pwd := []byte(password)
	if len(pwd) > 32 {
		pwd = pwd[:32]
	}
	out := make([]byte, 32)
	n := copy(out, pwd)
	copy(out[n:], passwordPadding)
	return out
}
