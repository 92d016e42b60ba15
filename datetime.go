package ftpserver

import "fmt"

// FAT-style date/time encoding (as used by MDTM): a 16-bit date
// ({year-1980:15..9, month:8..5, day:4..0}) and a 16-bit time
// ({hour:15..11, minute:10..5, sec/2:4..0}), packed to and unpacked from the
// 14-digit "YYYYMMDDHHMMSS" wire format used by the MDTM command.

// encodeDateTime packs a calendar date/time into the FAT16 (date, time)
// pair and renders it as a 14-digit string.
func encodeDateTime(year, month, day, hour, minute, second int) (date16, time16 uint16, wire string) {
	date16 = uint16((year-1980)<<9 | month<<5 | day)
	time16 = uint16(hour<<11 | minute<<5 | second/2)
	wire = fmt.Sprintf("%04d%02d%02d%02d%02d%02d", year, month, day, hour, minute, second)

	return date16, time16, wire
}

// decodeDateTimeFields unpacks the FAT16 (date, time) pair back into
// calendar components.
func decodeDateTimeFields(date16, time16 uint16) (year, month, day, hour, minute, second int) {
	year = int(date16>>9) + 1980
	month = int((date16 >> 5) & 0x0F)
	day = int(date16 & 0x1F)
	hour = int(time16 >> 11)
	minute = int((time16 >> 5) & 0x3F)
	second = int(time16&0x1F) * 2

	return year, month, day, hour, minute, second
}

// parseMDTMDateTime consumes a leading "YYYYMMDDHHMMSS " prefix (14 digits
// followed by a space) from param, returning the FAT16 (date, time) pair and
// the number of bytes consumed (always 15 on success). It returns consumed=0
// if the prefix doesn't match: any of the 14 characters isn't a digit, or
// position 14 isn't a space, or param is too short.
func parseMDTMDateTime(param string) (date16, time16 uint16, consumed int) {
	if len(param) < 15 {
		return 0, 0, 0
	}

	for i := 0; i < 14; i++ {
		if param[i] < '0' || param[i] > '9' {
			return 0, 0, 0
		}
	}

	if param[14] != ' ' {
		return 0, 0, 0
	}

	digit := func(i int) int { return int(param[i] - '0') }

	year := digit(0)*1000 + digit(1)*100 + digit(2)*10 + digit(3)
	month := digit(4)*10 + digit(5)
	day := digit(6)*10 + digit(7)
	hour := digit(8)*10 + digit(9)
	minute := digit(10)*10 + digit(11)
	second := digit(12)*10 + digit(13)

	date16 = uint16((year-1980)<<9 | month<<5 | day)
	time16 = uint16(hour<<11 | minute<<5 | second/2)

	return date16, time16, 15
}

// formatDateTime14 renders calendar components as the 14-digit MDTM wire
// format, with no trailing space.
func formatDateTime14(year, month, day, hour, minute, second int) string {
	return fmt.Sprintf("%04d%02d%02d%02d%02d%02d", year, month, day, hour, minute, second)
}
