package transform

import (
	"github.com/ethereum/go-ethereum/common"
)

// HashesToHex converts topics to their 0x-prefixed hex strings.
func HashesToHex(hashes []common.Hash) []string {
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = h.Hex()
	}
	return out
}

// HexToHashes is the inverse of HashesToHex.
func HexToHashes(ss []string) []common.Hash {
	out := make([]common.Hash, len(ss))
	for i, s := range ss {
		out[i] = common.HexToHash(s)
	}
	return out
}

// AddressToHex returns the lowercase 0x-prefixed form of an address.
func AddressToHex(a common.Address) string {
	return "0x" + common.Bytes2Hex(a.Bytes())
}
