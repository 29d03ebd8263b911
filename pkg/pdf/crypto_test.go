package pdf

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"errors"
	"fmt"
	"testing"
)

// rc4Fixture builds a V1/R2 40-bit RC4 encrypted document the way a
// writer would: O from the owner password, file key from the user
// password, U as the encrypted padding, streams encrypted per object.
type rc4Fixture struct {
	docID   []byte
	o       []byte
	u       []byte
	fileKey []byte
	perms   int32
}

func newRC4Fixture(userPwd, ownerPwd string) *rc4Fixture {
	fx := &rc4Fixture{
		docID: bytes.Repeat([]byte{0xAB, 0xCD}, 8),
		perms: -1,
	}

	ownerHash := md5.Sum(padPassword(ownerPwd))
	c, _ := rc4.NewCipher(ownerHash[:5])
	fx.o = make([]byte, 32)
	c.XORKeyStream(fx.o, padPassword(userPwd))

	h := md5.New()
	h.Write(padPassword(userPwd))
	h.Write(fx.o)
	p := fx.perms
	h.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	h.Write(fx.docID)
	sum := h.Sum(nil)
	fx.fileKey = sum[:5]

	c, _ = rc4.NewCipher(fx.fileKey)
	fx.u = make([]byte, 32)
	c.XORKeyStream(fx.u, passwordPadding)
	return fx
}

func (fx *rc4Fixture) encrypt(data []byte, num, gen int) []byte {
	h := md5.New()
	h.Write(fx.fileKey)
	h.Write([]byte{byte(num), byte(num >> 8), byte(num >> 16)})
	h.Write([]byte{byte(gen), byte(gen >> 8)})
	key := h.Sum(nil)[:10]
	c, _ := rc4.NewCipher(key)
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

func (fx *rc4Fixture) document() []byte {
	b := newPDFBuilder()
	content := "BT /F1 12 Tf 72 720 Td (Hello) Tj ET"
	enc := fx.encrypt([]byte(content), 4, 0)
	b.obj("<</Type /Catalog /Pages 2 0 R>>")
	b.obj("<</Type /Pages /Kids [3 0 R] /Count 1>>")
	b.obj("<</Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R>>")
	b.obj(fmt.Sprintf("<</Length %d>>\nstream\n%s\nendstream", len(enc), enc))
	b.obj(fmt.Sprintf("<</Filter /Standard /V 1 /R 2 /P %d /O <%X> /U <%X>>>",
		fx.perms, fx.o, fx.u))
	return b.finishExtra(1, fmt.Sprintf(" /Encrypt 5 0 R /ID [<%X> <%X>]", fx.docID, fx.docID))
}

func TestLoadRC4EmptyPassword(t *testing.T) {
	fx := newRC4Fixture("", "owner")
	f, err := Load(fx.document())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !f.Encrypted() {
		t.Fatal("Encrypted() = false")
	}
	page, err := f.GetPage(1)
	if err != nil {
		t.Fatal(err)
	}
	data, err := page.Contents()
	if err != nil {
		t.Fatal(err)
	}
	if want := "(Hello) Tj"; !bytes.Contains(data, []byte(want)) {
		t.Errorf("decrypted contents missing %q: %q", want, data)
	}
}

func TestLoadRC4UserPassword(t *testing.T) {
	fx := newRC4Fixture("secret", "owner")
	doc := fx.document()

	if _, err := Load(doc); !errors.Is(err, ErrEncrypted) {
		t.Fatalf("Load without password: got %v, want ErrEncrypted", err)
	}
	f, err := LoadWithPassword(doc, "secret")
	if err != nil {
		t.Fatalf("LoadWithPassword(user): %v", err)
	}
	if page, _ := f.GetPage(1); page == nil {
		t.Fatal("no page after decryption")
	}
	// The owner password opens the document too.
	if _, err := LoadWithPassword(doc, "owner"); err != nil {
		t.Fatalf("LoadWithPassword(owner): %v", err)
	}
	if _, err := LoadWithPassword(doc, "wrong"); !errors.Is(err, ErrEncrypted) {
		t.Fatalf("LoadWithPassword(wrong): got %v, want ErrEncrypted", err)
	}
}

func TestAESDecryptRoundTrip(t *testing.T) {
	sh := &securityHandler{method: cryptoAESV2, keyLength: 16, key: bytes.Repeat([]byte{7}, 16)}
	plain := []byte("q 1 0 0 1 10 10 cm BT ET Q")

	key := sh.objectKey(12, 0)
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	pad := aes.BlockSize - len(plain)%aes.BlockSize
	padded := append(append([]byte{}, plain...), bytes.Repeat([]byte{byte(pad)}, pad)...)
	iv := bytes.Repeat([]byte{3}, aes.BlockSize)
	enc := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(enc, padded)

	got, err := sh.decrypt(append(iv, enc...), 12, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("round trip = %q, want %q", got, plain)
	}
}

func TestAuthenticateV5R5(t *testing.T) {
	fileKey := bytes.Repeat([]byte{0x42}, 32)
	valSalt := []byte("valsalt!")
	keySalt := []byte("keysalt!")

	vh := sha256.Sum256(append([]byte("pw"), valSalt...))
	u := append(append(vh[:], valSalt...), keySalt...)

	ik := sha256.Sum256(append([]byte("pw"), keySalt...))
	block, err := aes.NewCipher(ik[:])
	if err != nil {
		t.Fatal(err)
	}
	ue := make([]byte, 32)
	cipher.NewCBCEncrypter(block, make([]byte, 16)).CryptBlocks(ue, fileKey)

	sh := &securityHandler{method: cryptoAESV3, revision: 5, userKey: u, userEnc: ue}
	if !sh.authenticate("pw") {
		t.Fatal("authenticate rejected the correct password")
	}
	if !bytes.Equal(sh.key, fileKey) {
		t.Errorf("recovered key = %x, want %x", sh.key, fileKey)
	}
	if sh.authenticate("other") {
		t.Error("authenticate accepted a wrong password")
	}
}

func TestObjectKeyDependsOnObjectNumber(t *testing.T) {
	sh := &securityHandler{method: cryptoRC4, key: []byte{1, 2, 3, 4, 5}}
	if bytes.Equal(sh.objectKey(1, 0), sh.objectKey(2, 0)) {
		t.Error("object keys for different objects must differ")
	}
	if len(sh.objectKey(1, 0)) != 10 {
		t.Errorf("40-bit object key length = %d, want 10", len(sh.objectKey(1, 0)))
	}
}
