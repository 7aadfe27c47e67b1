package asm

// HeaderSize and IVTSize are the fixed binary layouts the cartridge header
// and interrupt vector table occupy.
const (
	HeaderSize = 96
	IVTSize    = 32
)

// Field widths within the 96-byte header: boot_anim fills whatever room is
// left once every other fixed-width field is accounted for, so its length
// is derived rather than named directly.
const (
	headerTitleLen     = 0x14
	headerDeveloperLen = 0x24
	headerTailLen      = headerTitleLen + headerDeveloperLen + 5 // version, rom_size, ram_size, cart_info, features
	headerBootAnimLen  = HeaderSize - headerTailLen

	headerOffBootAnim  = 0
	headerOffTitle     = headerOffBootAnim + headerBootAnimLen
	headerOffDeveloper = headerOffTitle + headerTitleLen
	headerOffVersion   = headerOffDeveloper + headerDeveloperLen
	headerOffRomSize   = headerOffVersion + 1
	headerOffRamSize   = headerOffRomSize + 1
	headerOffCartInfo  = headerOffRamSize + 1
	headerOffFeatures  = headerOffCartInfo + 1
)

// EncodeHeader renders the 96-byte cartridge header: boot-animation bytes,
// a zero-padded title and developer string, version/rom_size/ram_size, and
// the two packed bitfield bytes cart_info/features. No checksum is computed,
// and no offset in this layout is set aside for checksum bytes.
func EncodeHeader(h HeaderInfo) []byte {
	buf := make([]byte, HeaderSize)

	copy(buf[headerOffBootAnim:headerOffTitle], h.BootAnim)
	copy(buf[headerOffTitle:headerOffDeveloper], []byte(h.Title))
	copy(buf[headerOffDeveloper:headerOffVersion], []byte(h.Developer))

	buf[headerOffVersion] = h.Version
	buf[headerOffRomSize] = h.RomSize
	buf[headerOffRamSize] = h.RamSize
	buf[headerOffCartInfo] = (h.HardwareRev&0x3)<<6 | (h.Region&0x7)<<3
	buf[headerOffFeatures] = (h.InterruptMode&0x1)<<7 | (h.Mapper&0x3)<<5

	return buf
}
