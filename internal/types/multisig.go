package types

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// multisigPrefix is the derivation domain used by the utility/multisig pallet.
var multisigPrefix = []byte("modlpy/utilisuba")

// DeriveMultisigAccount computes the multisig account id for a signatory set
// and threshold. Chains sharing this derivation produce the same account for
// the same inputs, which is what makes a multisig universal.
func DeriveMultisigAccount(signatories []AccountID, threshold int) AccountID {
	sorted := SortAccountIDs(append([]AccountID(nil), signatories...))

	buf := make([]byte, 0, len(multisigPrefix)+5+len(sorted)*AccountIDLength+2)
	buf = append(buf, multisigPrefix...)
	buf = appendCompact(buf, uint64(len(sorted)))
	for _, s := range sorted {
		buf = append(buf, s[:]...)
	}
	buf = binary.LittleEndian.AppendUint16(buf, uint16(threshold))

	return AccountID(blake2b.Sum256(buf))
}

// appendCompact appends the SCALE compact encoding of n.
func appendCompact(buf []byte, n uint64) []byte {
	switch {
	case n < 1<<6:
		return append(buf, byte(n<<2))
	case n < 1<<14:
		return binary.LittleEndian.AppendUint16(buf, uint16(n<<2|0b01))
	case n < 1<<30:
		return binary.LittleEndian.AppendUint32(buf, uint32(n<<2|0b10))
	default:
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], n)
		size := 8
		for size > 4 && tmp[size-1] == 0 {
			size--
		}
		buf = append(buf, byte((size-4)<<2|0b11))
		return append(buf, tmp[:size]...)
	}
}
