package catalog

// CodecKind classifies a compressor entry.
type CodecKind string

// Codec kinds. The first four are the known/supported set; everything
// else found on the host is KindOther.
const (
	KindUncompressed CodecKind = "uncompressed"
	KindDV           CodecKind = "dv"
	KindXviD         CodecKind = "xvid"
	KindHuffYUV      CodecKind = "huffyuv"
	KindOther        CodecKind = "other"
)

// CompressorEntry identifies a compressor filter.
type CompressorEntry struct {
	Name      string    `json:"name" example:"XviD MPEG-4 Codec" doc:"Compressor display name"`
	Kind      CodecKind `json:"kind" example:"xvid" doc:"Codec classification"`
	FourCC    string    `json:"fourcc,omitempty" example:"xvid" doc:"FourCC code, if any"`
	Installed bool      `json:"installed" doc:"Whether the compressor is present on this host"`
}

// EncoderInfo describes an encoder found on the host by the prober.
type EncoderInfo struct {
	Name   string
	FourCC string
}

// knownCompressors is the fixed supported table. Uncompressed needs no
// host filter and is always installed.
var knownCompressors = []CompressorEntry{
	{Name: "Uncompressed", Kind: KindUncompressed, FourCC: "", Installed: true},
	{Name: "DV Video Encoder", Kind: KindDV, FourCC: "dvsd"},
	{Name: "XviD MPEG-4 Codec", Kind: KindXviD, FourCC: "xvid"},
	{Name: "HuffYUV", Kind: KindHuffYUV, FourCC: "hfyu"},
}

// mergeCompressors combines the known table with host-installed encoders.
// Known kinds get their installed flag from the host list (matched by
// fourCC); unrecognized host encoders are appended as KindOther.
func mergeCompressors(installed []EncoderInfo) []CompressorEntry {
	byFourCC := make(map[string]EncoderInfo, len(installed))
	for _, enc := range installed {
		if enc.FourCC != "" {
			byFourCC[enc.FourCC] = enc
		}
	}

	result := make([]CompressorEntry, 0, len(knownCompressors)+len(installed))
	knownCC := make(map[string]bool)
	for _, known := range knownCompressors {
		entry := known
		if known.FourCC != "" {
			if _, ok := byFourCC[known.FourCC]; ok {
				entry.Installed = true
			}
			knownCC[known.FourCC] = true
		}
		result = append(result, entry)
	}

	for _, enc := range installed {
		if enc.FourCC != "" && knownCC[enc.FourCC] {
			continue
		}
		result = append(result, CompressorEntry{
			Name:      enc.Name,
			Kind:      KindOther,
			FourCC:    enc.FourCC,
			Installed: true,
		})
	}
	return result
}
