package common

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	ethereumCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

// Hash is a custom type based on Ethereum's common.Hash
type Hash ethereumCommon.Hash

// ComputeHash computes the BLAKE2b hash of the given data
func ComputeHash(data []byte) []byte {
	hash := blake2b.Sum256(data)
	return hash[:]
}

// Blake2Hash is the content key of a code item in the verdict cache.
func Blake2Hash(data []byte) Hash {
	return BytesToHash(ComputeHash(data))
}

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte {
	return ethereumCommon.Hash(h).Bytes()
}

func (h Hash) String() string {
	return ethereumCommon.Hash(h).String()
}

// Hex returns the hexadecimal string representation of the hash.
func (h Hash) Hex() string {
	return ethereumCommon.Hash(h).Hex()
}

// BytesToHash converts a byte slice to a Hash.
func BytesToHash(b []byte) Hash {
	return Hash(ethereumCommon.BytesToHash(b))
}

// DecodeHex decodes a hex string with or without the 0x prefix. Odd lengths
// and non-hex digits are errors.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

// Skips "0x" and prints the first and last 4 characters
func Str(hash Hash) string {
	hex := hash.Hex()
	return fmt.Sprintf("%s..%s", hex[2:6], hex[len(hex)-4:])
}

// MarshalJSON custom marshaler to convert Hash to hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Hex())
}

// UnmarshalJSON accepts only a 0x-prefixed string of exactly 32 bytes.
func (h *Hash) UnmarshalJSON(data []byte) error {
	return (*ethereumCommon.Hash)(h).UnmarshalJSON(data)
}

func Uint16ToBytes(value uint16) []byte {
	bytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(bytes, value)
	return bytes
}

func Uint32ToBytes(val uint32) []byte {
	bytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(bytes, val)
	return bytes
}

// UnitsToBytes serialises code units little-endian, as they appear in a dex
// file.
func UnitsToBytes(units []uint16) []byte {
	out := make([]byte, 0, len(units)*2)
	for _, u := range units {
		out = binary.LittleEndian.AppendUint16(out, u)
	}
	return out
}
