package oil

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/oil/compose"
	"github.com/gogpu/oil/diag"
	"github.com/gogpu/oil/preprocess"
)

const (
	utilModule = `#define_import_path util
fn double(x: f32) -> f32 { return x * 2.0; }
`
	shadeModule = `#define_import_path shade
#import util
fn bright(x: f32) -> f32 { return util::double(x) + 0.1; }
`
	mainShader = `#import shade
@fragment
fn main() -> @location(0) vec4<f32> { return vec4<f32>(shade::bright(0.25)); }
`
)

func TestComposeWGSL(t *testing.T) {
	// Modules are given in the wrong order on purpose.
	text, err := ComposeWGSL(mainShader, shadeModule, utilModule)
	if err != nil {
		t.Fatalf("ComposeWGSL failed: %v", err)
	}
	for _, want := range []string{
		"fn " + compose.Decorate("util", "double") + "(x: f32)",
		"fn " + compose.Decorate("shade", "bright") + "(x: f32)",
		compose.Decorate("shade", "bright") + "(0.25)",
		"fn main()",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("composed text missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "#import") || strings.Contains(text, "::") {
		t.Errorf("composed text still has import syntax:\n%s", text)
	}
	if strings.Index(text, compose.Decorate("util", "double")) > strings.Index(text, "fn main") {
		t.Errorf("imported items must precede the entry:\n%s", text)
	}
}

func TestComposeWGSLUnresolved(t *testing.T) {
	_, err := ComposeWGSL(mainShader, utilModule)
	if !diag.Is(err, diag.KindImportNotFound) {
		t.Fatalf("got %v, want ImportNotFound", err)
	}
}

func TestSortModules(t *testing.T) {
	tests := []struct {
		name    string
		modules []compose.ModuleDescriptor
		want    []string
	}{
		{
			name: "reversed chain",
			modules: []compose.ModuleDescriptor{
				{FilePath: "shade.wgsl", Source: shadeModule},
				{FilePath: "util.wgsl", Source: utilModule},
			},
			want: []string{"util.wgsl", "shade.wgsl"},
		},
		{
			name: "independent modules keep order",
			modules: []compose.ModuleDescriptor{
				{FilePath: "b.wgsl", Source: "#define_import_path b\n"},
				{FilePath: "a.wgsl", Source: "#define_import_path a\n"},
			},
			want: []string{"b.wgsl", "a.wgsl"},
		},
		{
			name: "descriptor name wins",
			modules: []compose.ModuleDescriptor{
				{FilePath: "user.wgsl", Source: "#import helpers\nfn f() {}\n"},
				{FilePath: "h.wgsl", Name: "helpers", Source: "fn g() {}\n"},
			},
			want: []string{"h.wgsl", "user.wgsl"},
		},
		{
			name: "additional imports count",
			modules: []compose.ModuleDescriptor{
				{
					FilePath:          "user.wgsl",
					Source:            "#define_import_path user\n",
					AdditionalImports: []compose.ImportDecl{{Path: "util"}},
				},
				{FilePath: "util.wgsl", Source: utilModule},
			},
			want: []string{"util.wgsl", "user.wgsl"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ordered, err := SortModules(tt.modules)
			if err != nil {
				t.Fatalf("SortModules failed: %v", err)
			}
			var got []string
			for _, d := range ordered {
				got = append(got, d.FilePath)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSortModulesCycle(t *testing.T) {
	_, err := SortModules([]compose.ModuleDescriptor{
		{Source: "#define_import_path a\n#import b\n"},
		{Source: "#define_import_path b\n#import a\n"},
	})
	if !diag.Is(err, diag.KindImportCycle) {
		t.Fatalf("got %v, want ImportCycle", err)
	}
	if !strings.Contains(err.Error(), "a -> b -> a") {
		t.Errorf("error %q does not show the cycle", err)
	}
}

func TestNewComposerOptions(t *testing.T) {
	c := NewComposer(WithDuplicatePolicy(compose.DuplicateReject), WithCacheSize(-1))
	if _, err := c.Add(compose.ModuleDescriptor{Source: utilModule}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	_, err := c.Add(compose.ModuleDescriptor{Source: utilModule})
	if !diag.Is(err, diag.KindDuplicateModule) {
		t.Fatalf("got %v, want DuplicateModule", err)
	}
}

func TestComposeWithDefs(t *testing.T) {
	modules := []compose.ModuleDescriptor{{Source: `#define_import_path consts
#ifdef BIG_NUMBER
const NUMBER: f32 = 999.0;
#else
const NUMBER: f32 = 0.999;
#endif
`}}
	entry := `#import consts
fn value() -> f32 { return consts::NUMBER; }
`
	for _, tt := range []struct {
		defs compose.ShaderDefs
		want string
	}{
		{compose.ShaderDefs{"BIG_NUMBER": preprocess.Bool(true)}, "999.0"},
		{nil, "0.999"},
	} {
		res, err := Compose(modules, compose.ComposeDescriptor{Source: entry, Defs: tt.defs})
		if err != nil {
			t.Fatalf("Compose failed: %v", err)
		}
		text, err := res.Text()
		if err != nil {
			t.Fatalf("Text failed: %v", err)
		}
		if !strings.Contains(text, "const "+compose.Decorate("consts", "NUMBER")+": f32 = "+tt.want+";") {
			t.Errorf("defs %v: composed text lacks %s:\n%s", tt.defs, tt.want, text)
		}
	}
}
