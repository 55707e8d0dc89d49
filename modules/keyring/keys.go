package keyring

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tx-composer/lib/scale"

	"github.com/ChainSafe/go-schnorrkel"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
)

// well known development phrase, every //Name identity derives from it
const DevPhrase = "bottom drive obey lake curtain smoke basket hold race lonely fit walk"

const (
	signingContext = "substrate"
	// payloads longer than this are hashed before signing
	maxUnhashedPayload = 256
)

var (
	ErrUnsupportedPath = errors.New("unsupported derivation path")
	ErrUnknownScheme   = errors.New("unknown signature scheme")
)

type Scheme uint8

const (
	Sr25519 Scheme = iota
	Ed25519
	Ecdsa
)

func (s Scheme) String() string {
	switch s {
	case Sr25519:
		return "Sr25519"
	case Ed25519:
		return "Ed25519"
	case Ecdsa:
		return "Ecdsa"
	default:
		return "Scheme(" + strconv.Itoa(int(s)) + ")"
	}
}

// SchemeFromName maps MultiSignature alternative names to a scheme.
func SchemeFromName(name string) (Scheme, error) {
	switch strings.ToLower(name) {
	case "sr25519":
		return Sr25519, nil
	case "ed25519":
		return Ed25519, nil
	case "ecdsa":
		return Ecdsa, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownScheme, name)
	}
}

// SignatureLength is the encoded size of a signature of the scheme.
func (s Scheme) SignatureLength() int {
	if s == Ecdsa {
		return 65
	}
	return 64
}

type Signature struct {
	Scheme Scheme
	Bytes  []byte
}

type signer interface {
	scheme() Scheme
	account() [32]byte
	sign(payload []byte) ([]byte, error)
}

func blake2_256(b []byte) [32]byte {
	return blake2b.Sum256(b)
}

func signingMessage(payload []byte) []byte {
	if len(payload) > maxUnhashedPayload {
		h := blake2_256(payload)
		return h[:]
	}
	return payload
}

// junctions splits "//Alice//stash" into hard junction chain codes.
func junctions(path string) ([][32]byte, error) {
	if path == "" {
		return nil, nil
	}
	if !strings.HasPrefix(path, "//") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPath, path)
	}
	parts := strings.Split(path[2:], "//")
	res := make([][32]byte, 0, len(parts))
	for _, p := range parts {
		if p == "" || strings.Contains(p, "/") {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedPath, path)
		}
		res = append(res, chainCode(p))
	}
	return res, nil
}

func chainCode(junction string) [32]byte {
	var cc [32]byte
	var encoded []byte
	if n, err := strconv.ParseUint(junction, 10, 64); err == nil {
		encoded = binary.LittleEndian.AppendUint64(nil, n)
	} else {
		e := scale.NewEncoder()
		e.Text(junction)
		encoded = e.Bytes()
	}
	if len(encoded) > len(cc) {
		return blake2_256(encoded)
	}
	copy(cc[:], encoded)
	return cc
}

func devSeed() ([32]byte, error) {
	var seed [32]byte
	full, err := schnorrkel.SeedFromMnemonic(DevPhrase, "")
	if err != nil {
		return seed, err
	}
	copy(seed[:], full[:32])
	return seed, nil
}

// hdkd derives a hard child seed the way ed25519 and ecdsa keys do.
func hdkd(tag string, seed [32]byte, cc [32]byte) [32]byte {
	e := scale.NewEncoder()
	e.Text(tag)
	e.Write(seed[:])
	e.Write(cc[:])
	return blake2_256(e.Bytes())
}

type sr25519Key struct {
	secret *schnorrkel.SecretKey
	public [32]byte
}

func newSr25519(path string) (*sr25519Key, error) {
	codes, err := junctions(path)
	if err != nil {
		return nil, err
	}
	mini, err := schnorrkel.MiniSecretKeyFromMnemonic(DevPhrase, "")
	if err != nil {
		return nil, err
	}
	for _, cc := range codes {
		mini, _, err = mini.HardDeriveMiniSecretKey([]byte{}, cc)
		if err != nil {
			return nil, fmt.Errorf("failed to derive %s: %w", path, err)
		}
	}
	return &sr25519Key{
		secret: mini.ExpandEd25519(),
		public: mini.Public().Encode(),
	}, nil
}

func (k *sr25519Key) scheme() Scheme    { return Sr25519 }
func (k *sr25519Key) account() [32]byte { return k.public }

func (k *sr25519Key) sign(payload []byte) ([]byte, error) {
	t := schnorrkel.NewSigningContext([]byte(signingContext), signingMessage(payload))
	sig, err := k.secret.Sign(t)
	if err != nil {
		return nil, err
	}
	b := sig.Encode()
	return b[:], nil
}

type ed25519Key struct {
	secret ed25519.PrivateKey
}

func newEd25519(path string) (*ed25519Key, error) {
	codes, err := junctions(path)
	if err != nil {
		return nil, err
	}
	seed, err := devSeed()
	if err != nil {
		return nil, err
	}
	for _, cc := range codes {
		seed = hdkd("Ed25519HDKD", seed, cc)
	}
	return &ed25519Key{secret: ed25519.NewKeyFromSeed(seed[:])}, nil
}

func (k *ed25519Key) scheme() Scheme { return Ed25519 }

func (k *ed25519Key) account() [32]byte {
	var acc [32]byte
	copy(acc[:], k.secret.Public().(ed25519.PublicKey))
	return acc
}

func (k *ed25519Key) sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(k.secret, signingMessage(payload)), nil
}

type ecdsaKey struct {
	secret *ecdsa.PrivateKey
}

func newEcdsa(path string) (*ecdsaKey, error) {
	codes, err := junctions(path)
	if err != nil {
		return nil, err
	}
	seed, err := devSeed()
	if err != nil {
		return nil, err
	}
	for _, cc := range codes {
		seed = hdkd("Secp256k1HDKD", seed, cc)
	}
	secret, err := crypto.ToECDSA(seed[:])
	if err != nil {
		return nil, err
	}
	return &ecdsaKey{secret: secret}, nil
}

func (k *ecdsaKey) scheme() Scheme { return Ecdsa }

// account ids of ecdsa keys are the hash of the compressed public key
func (k *ecdsaKey) account() [32]byte {
	return blake2_256(crypto.CompressPubkey(&k.secret.PublicKey))
}

func (k *ecdsaKey) sign(payload []byte) ([]byte, error) {
	digest := blake2_256(payload)
	return crypto.Sign(digest[:], k.secret)
}

func newSigner(scheme Scheme, path string) (signer, error) {
	switch scheme {
	case Sr25519:
		return newSr25519(path)
	case Ed25519:
		return newEd25519(path)
	case Ecdsa:
		return newEcdsa(path)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownScheme, scheme)
	}
}
