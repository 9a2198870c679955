// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import "strings"

// typePrefixes name the builtin opaque and vector type families.
var typePrefixes = []string{
	"vec", "ivec", "uvec", "bvec", "dvec", "mat", "dmat",
	"sampler", "isampler", "usampler", "image", "iimage", "uimage",
	"texture", "itexture", "utexture", "subpassInput",
}

var scalarTypes = map[string]struct{}{
	"void": {}, "bool": {}, "int": {}, "uint": {}, "float": {}, "double": {}, "atomic_uint": {},
}

// qualifiers may precede a type in a declaration.
var qualifiers = map[string]struct{}{
	"attribute": {}, "const": {}, "uniform": {}, "varying": {}, "buffer": {}, "shared": {},
	"coherent": {}, "volatile": {}, "restrict": {}, "readonly": {}, "writeonly": {},
	"centroid": {}, "flat": {}, "smooth": {}, "noperspective": {}, "patch": {}, "sample": {},
	"in": {}, "out": {}, "inout": {}, "invariant": {}, "precise": {},
	"lowp": {}, "mediump": {}, "highp": {}, "subroutine": {},
}

// statementWords never start a declaration.
var statementWords = map[string]struct{}{
	"break": {}, "continue": {}, "do": {}, "for": {}, "while": {}, "switch": {}, "case": {},
	"default": {}, "if": {}, "else": {}, "discard": {}, "return": {}, "true": {}, "false": {},
	"struct": {}, "layout": {}, "precision": {},
}

// reserved holds reserved words and the builtin variables and functions
// of GLSL 4.60; none of them can name a module item.
var reserved = map[string]struct{}{
	// Reserved for future use
	"common": {}, "partition": {}, "active": {}, "asm": {}, "class": {}, "union": {},
	"enum": {}, "typedef": {}, "template": {}, "this": {}, "resource": {}, "goto": {},
	"inline": {}, "noinline": {}, "public": {}, "static": {}, "extern": {}, "external": {},
	"interface": {}, "long": {}, "short": {}, "half": {}, "fixed": {}, "unsigned": {},
	"superp": {}, "input": {}, "output": {}, "filter": {}, "sizeof": {}, "cast": {},
	"namespace": {}, "using": {},

	// Builtin variables and constants
	"gl_VertexID": {}, "gl_InstanceID": {}, "gl_VertexIndex": {}, "gl_InstanceIndex": {},
	"gl_Position": {}, "gl_PointSize": {}, "gl_ClipDistance": {}, "gl_CullDistance": {},
	"gl_PerVertex": {}, "gl_FragCoord": {}, "gl_FrontFacing": {}, "gl_PointCoord": {},
	"gl_SampleID": {}, "gl_SamplePosition": {}, "gl_SampleMaskIn": {}, "gl_FragDepth": {},
	"gl_SampleMask": {}, "gl_Layer": {}, "gl_ViewportIndex": {}, "gl_HelperInvocation": {},
	"gl_NumWorkGroups": {}, "gl_WorkGroupSize": {}, "gl_WorkGroupID": {},
	"gl_LocalInvocationID": {}, "gl_GlobalInvocationID": {}, "gl_LocalInvocationIndex": {},
	"gl_PrimitiveID": {}, "gl_InvocationID": {},

	// Builtin functions
	"radians": {}, "degrees": {}, "sin": {}, "cos": {}, "tan": {}, "asin": {}, "acos": {},
	"atan": {}, "sinh": {}, "cosh": {}, "tanh": {}, "asinh": {}, "acosh": {}, "atanh": {},
	"pow": {}, "exp": {}, "log": {}, "exp2": {}, "log2": {}, "sqrt": {}, "inversesqrt": {},
	"abs": {}, "sign": {}, "floor": {}, "trunc": {}, "round": {}, "roundEven": {}, "ceil": {},
	"fract": {}, "mod": {}, "modf": {}, "min": {}, "max": {}, "clamp": {}, "mix": {},
	"step": {}, "smoothstep": {}, "isnan": {}, "isinf": {}, "fma": {}, "frexp": {}, "ldexp": {},
	"floatBitsToInt": {}, "floatBitsToUint": {}, "intBitsToFloat": {}, "uintBitsToFloat": {},
	"packUnorm2x16": {}, "packSnorm2x16": {}, "packUnorm4x8": {}, "packSnorm4x8": {},
	"unpackUnorm2x16": {}, "unpackSnorm2x16": {}, "unpackUnorm4x8": {}, "unpackSnorm4x8": {},
	"packHalf2x16": {}, "unpackHalf2x16": {},
	"length": {}, "distance": {}, "dot": {}, "cross": {}, "normalize": {}, "faceforward": {},
	"reflect": {}, "refract": {}, "matrixCompMult": {}, "outerProduct": {}, "transpose": {},
	"determinant": {}, "inverse": {}, "lessThan": {}, "lessThanEqual": {}, "greaterThan": {},
	"greaterThanEqual": {}, "equal": {}, "notEqual": {}, "any": {}, "all": {}, "not": {},
	"bitfieldExtract": {}, "bitfieldInsert": {}, "bitfieldReverse": {}, "bitCount": {},
	"findLSB": {}, "findMSB": {}, "textureSize": {}, "textureQueryLod": {},
	"textureQueryLevels": {}, "textureSamples": {}, "texture": {}, "textureProj": {},
	"textureLod": {}, "textureOffset": {}, "texelFetch": {}, "texelFetchOffset": {},
	"textureGrad": {}, "textureGather": {}, "dFdx": {}, "dFdy": {}, "fwidth": {},
	"barrier": {}, "memoryBarrier": {}, "memoryBarrierShared": {}, "groupMemoryBarrier": {},
	"imageLoad": {}, "imageStore": {}, "imageSize": {}, "atomicAdd": {}, "atomicMin": {},
	"atomicMax": {}, "atomicAnd": {}, "atomicOr": {}, "atomicXor": {}, "atomicExchange": {},
	"atomicCompSwap": {}, "subpassLoad": {},
	"textureProjOffset": {}, "textureLodOffset": {}, "textureProjLod": {},
	"textureProjLodOffset": {}, "textureGradOffset": {}, "textureProjGrad": {},
	"textureProjGradOffset": {}, "textureGatherOffset": {}, "textureGatherOffsets": {},
	"texture1D": {}, "texture2D": {}, "texture3D": {}, "textureCube": {}, "texture2DLod": {},
	"texture2DProj": {}, "textureCubeLod": {}, "shadow2D": {}, "shadow2DProj": {},
	"dFdxFine": {}, "dFdyFine": {}, "dFdxCoarse": {}, "dFdyCoarse": {}, "fwidthFine": {},
	"fwidthCoarse": {}, "interpolateAtCentroid": {}, "interpolateAtSample": {},
	"interpolateAtOffset": {}, "uaddCarry": {}, "usubBorrow": {}, "umulExtended": {},
	"imulExtended": {}, "packDouble2x32": {}, "unpackDouble2x32": {},
	"EmitVertex": {}, "EndPrimitive": {}, "EmitStreamVertex": {}, "EndStreamPrimitive": {},
	"memoryBarrierAtomicCounter": {}, "memoryBarrierBuffer": {}, "memoryBarrierImage": {},
	"imageAtomicAdd": {}, "imageAtomicMin": {}, "imageAtomicMax": {}, "imageAtomicAnd": {},
	"imageAtomicOr": {}, "imageAtomicXor": {}, "imageAtomicExchange": {},
	"imageAtomicCompSwap": {}, "imageSamples": {}, "atomicCounter": {},
	"atomicCounterIncrement": {}, "atomicCounterDecrement": {}, "anyInvocation": {},
	"allInvocations": {}, "allInvocationsEqual": {},
}

// extensionPrefixes and extensionSuffixes match builtins added by
// extensions, such as subgroupAdd or debugPrintfEXT.
var (
	extensionPrefixes = []string{"subgroup", "rayQuery", "traceRay", "executeCallable", "reportIntersection"}
	extensionSuffixes = []string{"EXT", "ARB", "KHR", "NV", "NVX", "AMD", "INTEL", "OES", "QCOM"}
)

// isBuiltinType reports whether name is a GLSL builtin type.
func isBuiltinType(name string) bool {
	if _, ok := scalarTypes[name]; ok {
		return true
	}
	for _, prefix := range typePrefixes {
		if rest, ok := strings.CutPrefix(name, prefix); ok && builtinTypeSuffix(rest) {
			return true
		}
	}
	return false
}

// builtinTypeSuffix accepts "", "2"-"4", "2x3", "2D", "CubeArrayShadow" and
// similar dimension suffixes.
func builtinTypeSuffix(rest string) bool {
	if rest == "" {
		return true
	}
	c := rest[0]
	return c >= '1' && c <= '4' || c == 'C' || c == 'B' || c == 'S'
}

// isKeyword reports whether name is a GLSL keyword, builtin type or
// reserved builtin name.
func isKeyword(name string) bool {
	if isBuiltinType(name) || isQualifier(name) {
		return true
	}
	if _, ok := statementWords[name]; ok {
		return true
	}
	_, ok := reserved[name]
	return ok || strings.HasPrefix(name, "gl_")
}

func isQualifier(name string) bool {
	_, ok := qualifiers[name]
	return ok
}

// IsBuiltin reports whether name belongs to GLSL or one of its
// extensions rather than to any module.
func IsBuiltin(name string) bool {
	return isKeyword(name) || isExtensionName(name)
}

func isExtensionName(name string) bool {
	for _, prefix := range extensionPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	for _, suffix := range extensionSuffixes {
		if rest, ok := strings.CutSuffix(name, suffix); ok && rest != "" && rest[len(rest)-1] >= 'a' && rest[len(rest)-1] <= 'z' {
			return true
		}
	}
	return false
}
