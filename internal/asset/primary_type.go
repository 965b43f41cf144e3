package asset

import (
	"path/filepath"
	"strings"
)

// Primary type values understood by the service.
const (
	PrimaryType3DModel = "3D Model"
	PrimaryType2DAsset = "2D Asset"
	PrimaryTypeAudio   = "Audio"
	PrimaryTypeVideo   = "Video"
	PrimaryTypeOther   = "Other"
)

var extensionTypes = map[string]string{
	".fbx":   PrimaryType3DModel,
	".obj":   PrimaryType3DModel,
	".gltf":  PrimaryType3DModel,
	".glb":   PrimaryType3DModel,
	".stl":   PrimaryType3DModel,
	".3ds":   PrimaryType3DModel,
	".blend": PrimaryType3DModel,
	".usd":   PrimaryType3DModel,
	".usda":  PrimaryType3DModel,
	".usdc":  PrimaryType3DModel,
	".usdz":  PrimaryType3DModel,

	".png":  PrimaryType2DAsset,
	".jpg":  PrimaryType2DAsset,
	".jpeg": PrimaryType2DAsset,
	".tga":  PrimaryType2DAsset,
	".psd":  PrimaryType2DAsset,
	".exr":  PrimaryType2DAsset,

	".wav": PrimaryTypeAudio,
	".mp3": PrimaryTypeAudio,
	".ogg": PrimaryTypeAudio,

	".mp4":  PrimaryTypeVideo,
	".webm": PrimaryTypeVideo,
	".mov":  PrimaryTypeVideo,
}

// InferPrimaryType derives the asset's primary type from the first file's
// extension. The first file establishes the container type; mixed inputs
// keep that type for the remaining files.
func InferPrimaryType(paths []string) string {
	if len(paths) == 0 {
		return PrimaryTypeOther
	}
	ext := strings.ToLower(filepath.Ext(paths[0]))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return PrimaryTypeOther
}
