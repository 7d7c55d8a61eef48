package detect

const (
	// DefaultType is returned for content no rule recognises.
	DefaultType = "application/octet-stream"
	// DefaultMaxPrefix covers every signature in the default table; tar's
	// "ustar" magic at offset 257 is the deepest.
	DefaultMaxPrefix = 512
)

type entry struct {
	mediaType string
	offset    int
	pattern   string
}

// Entries are grouped by family. Within a family, container variants sit
// next to the generic signature they refine.
var defaultTable = []entry{
	// images
	{"image/png", 0, `89 50 4E 47 0D 0A 1A 0A`},
	{"image/jpeg", 0, `FF D8 FF`},
	{"image/gif", 0, `"GIF87a"`},
	{"image/gif", 0, `"GIF89a"`},
	{"image/webp", 0, `"RIFF" ??{4} "WEBP"`},
	{"image/bmp", 0, `"BM"`},
	{"image/tiff", 0, `49 49 2A 00`},
	{"image/tiff", 0, `4D 4D 00 2A`},
	{"image/x-icon", 0, `00 00 01 00`},
	{"image/vnd.adobe.photoshop", 0, `"8BPS"`},
	{"image/avif", 4, `"ftypavif"`},
	{"image/heic", 4, `"ftypheic"`},
	{"image/jxl", 0, `FF 0A`},

	// audio
	{"audio/mpeg", 0, `"ID3"`},
	{"audio/mpeg", 0, `FF FB`},
	{"audio/mpeg", 0, `FF F3`},
	{"audio/mpeg", 0, `FF F2`},
	{"audio/wav", 0, `"RIFF" ??{4} "WAVE"`},
	{"audio/aiff", 0, `"FORM" ??{4} "AIFF"`},
	{"audio/flac", 0, `"fLaC"`},
	{"audio/ogg", 0, `"OggS"`},
	{"audio/midi", 0, `"MThd"`},
	{"audio/mp4", 4, `"ftypM4A "`},
	{"audio/amr", 0, `"#!AMR"`},

	// video
	{"video/mp4", 4, `"ftyp"`},
	{"video/mp4", 4, `"ftypisom"`},
	{"video/mp4", 4, `"ftypmp42"`},
	{"video/quicktime", 4, `"ftypqt  "`},
	{"video/3gpp", 4, `"ftyp3gp"`},
	{"video/x-msvideo", 0, `"RIFF" ??{4} "AVI "`},
	{"video/x-matroska", 0, `1A 45 DF A3`},
	{"video/x-flv", 0, `"FLV" 01`},
	{"video/mpeg", 0, `00 00 01 BA`},

	// documents
	{"application/pdf", 0, `"%PDF-"`},
	{"application/postscript", 0, `"%!PS"`},
	{"application/rtf", 0, `"{\rtf"`},
	{"application/x-ole-storage", 0, `D0 CF 11 E0 A1 B1 1A E1`},
	{"application/epub+zip", 0, `"PK" 03 04 ??{26} "mimetypeapplication/epub+zip"`},
	{"application/vnd.oasis.opendocument.text", 0, `"PK" 03 04 ??{26} "mimetypeapplication/vnd.oasis.opendocument.text"`},
	{"application/vnd.oasis.opendocument.spreadsheet", 0, `"PK" 03 04 ??{26} "mimetypeapplication/vnd.oasis.opendocument.spreadsheet"`},
	{"application/vnd.oasis.opendocument.presentation", 0, `"PK" 03 04 ??{26} "mimetypeapplication/vnd.oasis.opendocument.presentation"`},
	{"application/xml", 0, `"<?xml "`},

	// archives and compression
	{"application/zip", 0, `"PK" 03 04`},
	{"application/zip", 0, `"PK" 05 06`},
	{"application/zip", 0, `"PK" 07 08`},
	{"application/gzip", 0, `1F 8B 08`},
	{"application/x-bzip2", 0, `"BZh"`},
	{"application/x-xz", 0, `FD "7zXZ" 00`},
	{"application/x-7z-compressed", 0, `"7z" BC AF 27 1C`},
	{"application/vnd.rar", 0, `"Rar!" 1A 07 00`},
	{"application/vnd.rar", 0, `"Rar!" 1A 07 01 00`},
	{"application/zstd", 0, `28 B5 2F FD`},
	{"application/x-tar", 257, `"ustar"`},

	// fonts
	{"font/woff", 0, `"wOFF"`},
	{"font/woff2", 0, `"wOF2"`},
	{"font/otf", 0, `"OTTO"`},
	{"font/ttf", 0, `00 01 00 00 00`},

	// executables and databases
	{"application/wasm", 0, `00 "asm"`},
	{"application/x-elf", 0, `7F "ELF"`},
	{"application/vnd.microsoft.portable-executable", 0, `"MZ"`},
	{"application/x-mach-binary", 0, `CF FA ED FE`},
	{"application/x-java-applet", 0, `CA FE BA BE`},
	{"application/vnd.sqlite3", 0, `"SQLite format 3" 00`},
}

// DefaultRules returns a fresh copy of the built-in signature table.
func DefaultRules() []Rule {
	rules := make([]Rule, len(defaultTable))
	for i, e := range defaultTable {
		rules[i] = Rule{
			MediaType: e.mediaType,
			Offset:    e.offset,
			Pattern:   MustParsePattern(e.pattern),
		}
	}
	return rules
}
