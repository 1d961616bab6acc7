package core

import (
	"crypto"
	"crypto/rand"
	"encoding/base64"

	mode2 "github.com/cloudflare/circl/sign/dilithium/mode2"
)

// SignatureAlgorithm identifies the post-quantum scheme used for every
// transaction signature on the network. It is fixed; peers running a
// different scheme cannot interoperate.
const SignatureAlgorithm = "Dilithium2"

// Encode returns the base64 representation of raw cryptographic material
// (public keys, secret keys and signatures travel on the wire in this form).
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode.
func Decode(data string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(data)
}

// DilithiumKeypair generates a Dilithium2 key pair. Only the wallet tooling
// calls this; the node itself never holds secret keys.
func DilithiumKeypair() (pub, priv []byte, err error) {
	pk, sk, err := mode2.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	return pk.Bytes(), sk.Bytes(), nil
}

// DilithiumSign signs msg with a packed Dilithium2 private key.
func DilithiumSign(priv, msg []byte) ([]byte, error) {
	var sk mode2.PrivateKey
	if err := sk.UnmarshalBinary(priv); err != nil {
		return nil, err
	}
	return sk.Sign(rand.Reader, msg, crypto.Hash(0))
}

// VerifySignature reports whether sig is a valid Dilithium2 signature over
// msg under pub. Malformed or wrong-size inputs yield false, never a panic
// or an error; the verifier is pure and safe for concurrent use.
func VerifySignature(msg, sig, pub []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	var pk mode2.PublicKey
	if err := pk.UnmarshalBinary(pub); err != nil {
		return false
	}
	return mode2.Verify(&pk, msg, sig)
}
