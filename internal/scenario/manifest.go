package scenario

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"inf1-verifier/internal/engine"
	"inf1-verifier/internal/pkg/logger"
	"inf1-verifier/internal/verifier"
)

type Kind string

const (
	KindExactIn   Kind = "exact-in"
	KindExactOut  Kind = "exact-out"
	KindRebalance Kind = "rebalance"
)

func (k *Kind) UnmarshalText(text []byte) error {
	switch v := Kind(text); v {
	case KindExactIn, KindExactOut, KindRebalance:
		*k = v
		return nil
	}
	return fmt.Errorf("unknown scenario kind %q", string(text))
}

// Case 清单中的一条校验；rebalance 时 amt 为 out 数量
type Case struct {
	Name       string `yaml:"name"`
	Kind       Kind   `yaml:"kind"`
	Amt        uint64 `yaml:"amt"`
	InpFixture string `yaml:"inp_fixture"`
	OutFixture string `yaml:"out_fixture"`
	ExpectErr  string `yaml:"expect_err"` // 期望的引擎错误，"<code>" 或 "<code>:<detail>"
}

type Manifest struct {
	Cases []Case `yaml:"cases"`
}

func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return ParseManifest(raw)
}

func ParseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for i, c := range m.Cases {
		if c.Name == "" {
			return nil, fmt.Errorf("case %d: missing name", i)
		}
		if c.Kind == "" {
			return nil, fmt.Errorf("case %s: missing kind", c.Name)
		}
		if c.InpFixture == "" || c.OutFixture == "" {
			return nil, fmt.Errorf("case %s: missing fixtures", c.Name)
		}
		if c.ExpectErr != "" {
			if _, err := engine.ParseInfErr(c.ExpectErr); err != nil {
				return nil, fmt.Errorf("case %s: %w", c.Name, err)
			}
		}
	}
	return &m, nil
}

type Result struct {
	Case   Case
	Report *verifier.Report
	Err    error // 非 nil 即失败；期望错误已命中时为 nil
}

func (r Result) Passed() bool {
	return r.Err == nil
}

// RunCase 交易对取自两个快照账户的 mint
func RunCase(ctx context.Context, d *Deps, c Case) Result {
	names := TokenAccFixtures{Inp: c.InpFixture, Out: c.OutFixture}
	var (
		report *verifier.Report
		err    error
	)
	switch c.Kind {
	case KindRebalance:
		report, err = Rebalance(ctx, d, c.Amt, names)
	case KindExactIn, KindExactOut:
		inp, out, lerr := d.loadTokenAccs(names)
		if lerr != nil {
			return Result{Case: c, Err: lerr}
		}
		mints := engine.Pair{Inp: inp.Mint, Out: out.Mint}
		if c.Kind == KindExactIn {
			report, err = TradeExactIn(ctx, d, c.Amt, mints, names)
		} else {
			report, err = TradeExactOut(ctx, d, c.Amt, mints, names)
		}
	default:
		err = fmt.Errorf("unknown scenario kind %q", c.Kind)
	}
	if c.ExpectErr != "" {
		return Result{Case: c, Report: report, Err: ExpectInfErr(err, c.ExpectErr)}
	}
	return Result{Case: c, Report: report, Err: err}
}

// Run 顺序执行全部用例，每条用例各自重新初始化引擎
func Run(ctx context.Context, d *Deps, m *Manifest) []Result {
	results := make([]Result, 0, len(m.Cases))
	for _, c := range m.Cases {
		if ctx.Err() != nil {
			results = append(results, Result{Case: c, Err: ctx.Err()})
			continue
		}
		r := RunCase(ctx, d, c)
		if r.Passed() {
			logger.Infof("[Scenario] %s 通过: kind=%s, amt=%d", c.Name, c.Kind, c.Amt)
		} else {
			logger.Errorf("[Scenario] %s 失败: kind=%s, amt=%d, err=%v", c.Name, c.Kind, c.Amt, r.Err)
		}
		results = append(results, r)
	}
	return results
}
