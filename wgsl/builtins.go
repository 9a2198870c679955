package wgsl

import "strings"

// predeclared holds every name WGSL defines without a declaration: types,
// type generators, builtin functions and the enumerants that appear in
// templates and attributes.
var predeclared = make(map[string]struct{}, 512)

// templateGenerators are the predeclared names that take a <...> list.
var templateGenerators = map[string]struct{}{
	"array": {}, "atomic": {}, "ptr": {}, "bitcast": {},
	"vec2": {}, "vec3": {}, "vec4": {},
	"mat2x2": {}, "mat2x3": {}, "mat2x4": {},
	"mat3x2": {}, "mat3x3": {}, "mat3x4": {},
	"mat4x2": {}, "mat4x3": {}, "mat4x4": {},
	"texture_1d": {}, "texture_2d": {}, "texture_2d_array": {}, "texture_3d": {},
	"texture_cube": {}, "texture_cube_array": {}, "texture_multisampled_2d": {},
	"texture_storage_1d": {}, "texture_storage_2d": {}, "texture_storage_2d_array": {},
	"texture_storage_3d": {}, "binding_array": {},
}

var scalarTypes = []string{"bool", "f16", "f32", "i32", "u32", "abstract_int", "abstract_float"}

var textureTypes = []string{
	"sampler", "sampler_comparison",
	"texture_depth_2d", "texture_depth_2d_array", "texture_depth_cube",
	"texture_depth_cube_array", "texture_depth_multisampled_2d", "texture_external",
}

var builtinFunctions = []string{
	// Logical and array
	"all", "any", "select", "arrayLength",
	// Numeric
	"abs", "acos", "acosh", "asin", "asinh", "atan", "atanh", "atan2",
	"ceil", "clamp", "cos", "cosh", "countLeadingZeros", "countOneBits",
	"countTrailingZeros", "cross", "degrees", "determinant", "distance", "dot",
	"dot4U8Packed", "dot4I8Packed", "exp", "exp2", "extractBits", "faceForward",
	"firstLeadingBit", "firstTrailingBit", "floor", "fma", "fract", "frexp",
	"insertBits", "inverseSqrt", "ldexp", "length", "log", "log2", "max", "min",
	"mix", "modf", "normalize", "pow", "quantizeToF16", "radians", "reflect",
	"refract", "reverseBits", "round", "saturate", "sign", "sin", "sinh",
	"smoothstep", "sqrt", "step", "tan", "tanh", "transpose", "trunc",
	// Derivatives
	"dpdx", "dpdxCoarse", "dpdxFine", "dpdy", "dpdyCoarse", "dpdyFine",
	"fwidth", "fwidthCoarse", "fwidthFine",
	// Textures
	"textureDimensions", "textureGather", "textureGatherCompare", "textureLoad",
	"textureNumLayers", "textureNumLevels", "textureNumSamples", "textureSample",
	"textureSampleBias", "textureSampleCompare", "textureSampleCompareLevel",
	"textureSampleGrad", "textureSampleLevel", "textureSampleBaseClampToEdge",
	"textureStore",
	// Atomics
	"atomicLoad", "atomicStore", "atomicAdd", "atomicSub", "atomicMax", "atomicMin",
	"atomicAnd", "atomicOr", "atomicXor", "atomicExchange", "atomicCompareExchangeWeak",
	// Packing
	"pack4x8snorm", "pack4x8unorm", "pack4xI8", "pack4xU8", "pack4xI8Clamp",
	"pack4xU8Clamp", "pack2x16snorm", "pack2x16unorm", "pack2x16float",
	"unpack4x8snorm", "unpack4x8unorm", "unpack4xI8", "unpack4xU8",
	"unpack2x16snorm", "unpack2x16unorm", "unpack2x16float",
	// Synchronization
	"storageBarrier", "textureBarrier", "workgroupBarrier", "workgroupUniformLoad",
	// Subgroups
	"subgroupAdd", "subgroupExclusiveAdd", "subgroupInclusiveAdd", "subgroupAll",
	"subgroupAnd", "subgroupAny", "subgroupBallot", "subgroupBroadcast",
	"subgroupBroadcastFirst", "subgroupElect", "subgroupMax", "subgroupMin",
	"subgroupMul", "subgroupExclusiveMul", "subgroupInclusiveMul", "subgroupOr",
	"subgroupShuffle", "subgroupShuffleDown", "subgroupShuffleUp", "subgroupShuffleXor",
	"subgroupXor", "quadBroadcast", "quadSwapDiagonal", "quadSwapX", "quadSwapY",
}

var enumerants = []string{
	// Address spaces and access modes
	"function", "private", "workgroup", "uniform", "storage", "handle", "push_constant",
	"read", "write", "read_write",
	// Texel formats
	"r8unorm", "r8snorm", "r8uint", "r8sint", "r16uint", "r16sint", "r16float",
	"rg8unorm", "rg8snorm", "rg8uint", "rg8sint", "r32uint", "r32sint", "r32float",
	"rg16uint", "rg16sint", "rg16float", "rgba8unorm", "rgba8snorm", "rgba8uint",
	"rgba8sint", "bgra8unorm", "rgb10a2uint", "rgb10a2unorm", "rg11b10float",
	"rg32uint", "rg32sint", "rg32float", "rgba16uint", "rgba16sint", "rgba16float",
	"rgba32uint", "rgba32sint", "rgba32float",
	// Builtin values
	"position", "vertex_index", "instance_index", "front_facing", "frag_depth",
	"sample_index", "sample_mask", "local_invocation_id", "local_invocation_index",
	"global_invocation_id", "workgroup_id", "num_workgroups", "subgroup_invocation_id",
	"subgroup_size", "primitive_index", "view_index", "clip_distances",
	// Interpolation
	"perspective", "linear", "flat", "center", "centroid", "sample", "first", "either",
	// Diagnostic severities and rules
	"error", "warning", "info", "off", "derivative_uniformity", "subgroup_uniformity",
}

func init() {
	for _, group := range [][]string{scalarTypes, textureTypes, builtinFunctions, enumerants} {
		for _, name := range group {
			predeclared[name] = struct{}{}
		}
	}
	for name := range templateGenerators {
		predeclared[name] = struct{}{}
	}
	// vec3f, vec4h, mat4x4f, ... shorthand aliases.
	for name := range templateGenerators {
		if strings.HasPrefix(name, "vec") || strings.HasPrefix(name, "mat") {
			for _, suffix := range []string{"f", "h", "i", "u"} {
				if strings.HasPrefix(name, "mat") && (suffix == "i" || suffix == "u") {
					continue
				}
				predeclared[name+suffix] = struct{}{}
			}
		}
	}
}

// IsPredeclared reports whether name is defined by WGSL itself.
func IsPredeclared(name string) bool {
	_, ok := predeclared[name]
	return ok
}

var shorthandScalars = map[byte]string{'f': "f32", 'h': "f16", 'i': "i32", 'u': "u32"}

// ExpandShorthand rewrites a predeclared alias such as vec3f or mat4x4h to
// its template form, vec3<f32> or mat4x4<f16>. Other names are returned
// unchanged.
func ExpandShorthand(name string) string {
	if len(name) < 5 || !IsPredeclared(name) {
		return name
	}
	base, suffix := name[:len(name)-1], name[len(name)-1]
	scalar, ok := shorthandScalars[suffix]
	if !ok {
		return name
	}
	if _, generic := templateGenerators[base]; !generic {
		return name
	}
	return base + "<" + scalar + ">"
}
