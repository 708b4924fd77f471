package bls

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"

	"github.com/cloudflare/circl/ecc/bls12381"
	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/cryptox"
	"golang.org/x/crypto/hkdf"
)

const sessionKeySize = 32

// challenge is H2(msg, U), reduced into the scalar field.
func challenge(msg []byte, u *bls12381.G1) *bls12381.Scalar {
	h := sha512.New()
	h.Write(dstSign)
	h.Write(u.BytesCompressed())
	h.Write(msg)

	s := new(bls12381.Scalar)
	s.SetBytes(h.Sum(nil))
	return s
}

// sessionKey derives the AES key from the shared pairing value, salted with
// the envelope header.
func sessionKey(g *bls12381.Gt, header []byte) ([]byte, error) {
	ikm, err := g.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEngine, err)
	}
	defer common.WipeByteArray(ikm)

	key := make([]byte, sessionKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, header, kdfInfo), key); err != nil {
		return nil, fmt.Errorf("%w: hkdf: %v", common.ErrEngine, err)
	}
	return key, nil
}

func nonceSize() int {
	return cryptox.NonceSize()
}

func seal(key, plaintext, aad []byte) (ct, nonce []byte, err error) {
	ct, nonce, err = cryptox.Seal(key, plaintext, aad)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrEngine, err)
	}
	return ct, nonce, nil
}

func open(key, nonce, ct, aad []byte) ([]byte, error) {
	return cryptox.Open(key, nonce, ct, aad)
}
