// SPDX-License-Identifier: MIT
// Copyright (c) 2026 dwstkar490-afk
// Source: github.com/dwstkar490-afk/UABEA-CLI

package schema

import "fmt"

// Well-known class ids.
const (
	ClassGameObject    int32 = 1
	ClassTexture2D     int32 = 28
	ClassTextAsset     int32 = 49
	ClassAudioClip     int32 = 83
	ClassMonoBehaviour int32 = 114
	ClassMonoScript    int32 = 115
	ClassAssetBundle   int32 = 142
	ClassVideoClip     int32 = 329
)

var classNames = map[int32]string{
	1:   "GameObject",
	2:   "Component",
	3:   "LevelGameManager",
	4:   "Transform",
	5:   "TimeManager",
	6:   "GlobalGameManager",
	8:   "Behaviour",
	9:   "GameManager",
	11:  "AudioManager",
	13:  "InputManager",
	18:  "EditorExtension",
	19:  "Physics2DSettings",
	20:  "Camera",
	21:  "Material",
	23:  "MeshRenderer",
	25:  "Renderer",
	27:  "Texture",
	28:  "Texture2D",
	29:  "OcclusionCullingSettings",
	30:  "GraphicsSettings",
	33:  "MeshFilter",
	41:  "OcclusionPortal",
	43:  "Mesh",
	45:  "Skybox",
	47:  "QualitySettings",
	48:  "Shader",
	49:  "TextAsset",
	50:  "Rigidbody2D",
	53:  "Collider2D",
	54:  "Rigidbody",
	55:  "PhysicsManager",
	56:  "Collider",
	57:  "Joint",
	58:  "CircleCollider2D",
	59:  "HingeJoint",
	60:  "PolygonCollider2D",
	61:  "BoxCollider2D",
	62:  "PhysicsMaterial2D",
	64:  "MeshCollider",
	65:  "BoxCollider",
	68:  "CompositeCollider2D",
	70:  "EdgeCollider2D",
	72:  "ComputeShader",
	74:  "AnimationClip",
	78:  "TagManager",
	81:  "AudioListener",
	82:  "AudioSource",
	83:  "AudioClip",
	84:  "RenderTexture",
	86:  "CustomRenderTexture",
	89:  "Cubemap",
	90:  "Avatar",
	91:  "AnimatorController",
	93:  "RuntimeAnimatorController",
	95:  "Animator",
	96:  "TrailRenderer",
	102: "TextMesh",
	104: "RenderSettings",
	108: "Light",
	111: "Animation",
	114: "MonoBehaviour",
	115: "MonoScript",
	117: "Texture3D",
	119: "Projector",
	120: "LineRenderer",
	121: "Flare",
	123: "LensFlare",
	124: "FlareLayer",
	128: "Font",
	129: "PlayerSettings",
	134: "PhysicMaterial",
	135: "SphereCollider",
	136: "CapsuleCollider",
	137: "SkinnedMeshRenderer",
	141: "BuildSettings",
	142: "AssetBundle",
	143: "CharacterController",
	147: "ResourceManager",
	150: "PreloadData",
	157: "LightmapSettings",
	187: "Texture2DArray",
	188: "CubemapArray",
	196: "NavMeshSettings",
	198: "ParticleSystem",
	199: "ParticleSystemRenderer",
	205: "LODGroup",
	212: "SpriteRenderer",
	213: "Sprite",
	218: "Terrain",
	220: "LightProbeGroup",
	221: "AnimatorOverrideController",
	222: "CanvasRenderer",
	223: "Canvas",
	224: "RectTransform",
	225: "CanvasGroup",
	240: "AudioMixer",
	258: "LightProbes",
	290: "AssetBundleManifest",
	319: "AvatarMask",
	320: "PlayableDirector",
	328: "VideoPlayer",
	329: "VideoClip",
	687078895: "SpriteAtlas",
}

// ClassName returns the common name of classID, or its hex form when unknown.
func ClassName(classID int32) string {
	if name, ok := classNames[classID]; ok {
		return name
	}

	return fmt.Sprintf("0x%08X", uint32(classID)) //nolint:gosec // display only
}
