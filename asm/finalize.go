package asm

// minROMBanks is the minimum cartridge size: bank 0 plus at least one
// switchable bank.
const minROMBanks = 2

// padFiller is the byte written into any unused tail of a bank.
const padFiller = 0xFF

// Finalize runs Pass 3: it pads the encoded image out to a whole number of
// banks (at least minROMBanks), filling unused tail bytes with padFiller.
func Finalize(image []byte) []byte {
	minSize := minROMBanks * BankSize
	size := len(image)
	if size < minSize {
		size = minSize
	}
	if rem := size % BankSize; rem != 0 {
		size += BankSize - rem
	}

	out := make([]byte, size)
	for i := range out {
		out[i] = padFiller
	}
	copy(out, image)
	return out
}

// BankCount returns how many whole banks a finalized image occupies.
func BankCount(image []byte) int {
	return len(image) / BankSize
}
