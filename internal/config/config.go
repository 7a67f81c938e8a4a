// Package config loads gojulius's configuration from flags, environment
// variables, and an optional YAML/JSON config file, in that order of
// precedence (flags last-write-wins via viper's BindPFlags).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved engine configuration. Each field maps to one
// of the recognized options listed in the decoder's external interface.
type Config struct {
	Paths    PathsConfig    `mapstructure:"paths"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Search   SearchConfig   `mapstructure:"search"`
	Reject   RejectConfig   `mapstructure:"reject"`
	Server   ServerConfig   `mapstructure:"server"`
	LogLevel string         `mapstructure:"log_level"`
}

// PathsConfig locates the immutable model assets consumed at engine start.
type PathsConfig struct {
	AcousticModel string `mapstructure:"acoustic_model"` // hmmdefs or BINHMM file
	HMMList       string `mapstructure:"hmm_list"`
	NgramForward  string `mapstructure:"ngram_forward"` // ARPA, pass-1 weight
	NgramBackward string `mapstructure:"ngram_backward"` // ARPA, pass-2 rescoring
	DFAGrammar    string `mapstructure:"dfa_grammar"`
	Dictionary    string `mapstructure:"dictionary"`
	CMNFile       string `mapstructure:"cmn_file"`
}

// AudioConfig holds the MFCC analysis parameters (§6 of the decoder spec).
type AudioConfig struct {
	SampleFreq   int     `mapstructure:"smp_freq"`
	FrameSize    int     `mapstructure:"framesize"`
	FrameShift   int     `mapstructure:"frameshift"`
	PreEmph      float64 `mapstructure:"pre_emph"`
	FbankNum     int     `mapstructure:"fbank_num"`
	MFCCDim      int     `mapstructure:"mfcc_dim"`
	Lifter       int     `mapstructure:"lifter"`
	DelWin       int     `mapstructure:"del_win"`
	AccWin       int     `mapstructure:"acc_win"`
	HiPass       int     `mapstructure:"hipass"`
	LoPass       int     `mapstructure:"lopass"`
	CMN          bool    `mapstructure:"cmn"`
	CVN          bool    `mapstructure:"cvn"`
	RawEnergy    bool    `mapstructure:"raw_e"`
	ENormalize   bool    `mapstructure:"enormal"`
	EScale       float64 `mapstructure:"escale"`
	SilFloor     float64 `mapstructure:"sil_floor"`
	UsePower     bool    `mapstructure:"usepower"`
	ZMeanFrame   bool    `mapstructure:"zmeanframe"`
	WithC0       bool    `mapstructure:"with_c0"`
	WithEnergy   bool    `mapstructure:"with_energy"`
	AbsESuppress bool    `mapstructure:"abs_e_suppress"`
	VTLNAlpha    float64 `mapstructure:"vtln_alpha"`
	VTLNLower    float64 `mapstructure:"vtln_lower"`
	VTLNUpper    float64 `mapstructure:"vtln_upper"`
	SSAlpha      float64 `mapstructure:"ss_alpha"`
	SSFloor      float64 `mapstructure:"ss_floor"`
	NoiseSpec    string  `mapstructure:"noise_spectrum"`
}

// SearchConfig holds the pass-1/pass-2 search tuning parameters.
type SearchConfig struct {
	BeamWidth          int     `mapstructure:"beam_width"`
	ScoreBeam          float64 `mapstructure:"score_beam"`
	NBest              int     `mapstructure:"nbest"`
	StackSize          int     `mapstructure:"stack_size"`
	HypoOverflow       int     `mapstructure:"hypo_overflow"`
	LookupRange        int     `mapstructure:"lookup_range"`
	// ScanBeamThres is accepted for config-file/CLI compatibility with the
	// recognized option name; pass 2's trellis-reuse connection scoring
	// (internal/stackdecoder) has no intra-word Viterbi of its own to prune.
	ScanBeamThres      float64 `mapstructure:"scan_beam_thres"`
	LMWeight           float64 `mapstructure:"lm_weight"`
	LMPenalty          float64 `mapstructure:"lm_penalty"`
	LMWeight2          float64 `mapstructure:"lm_weight2"`
	LMPenalty2         float64 `mapstructure:"lm_penalty2"`
	TransparentPenalty float64 `mapstructure:"transparent_penalty"`
	IWCD1              string  `mapstructure:"iwcd1"` // max|avg|bestN
	GPrune             string  `mapstructure:"gprune"` // safe|heuristic|beam|none
	GaussianPruneN     int     `mapstructure:"gaussian_prune_n"`
	SPModel            string  `mapstructure:"sp_model"`
	SPFrameDuration    int     `mapstructure:"sp_frame_duration"`
	FallbackOnePass    bool    `mapstructure:"fallback_1pass"`
	ConfidenceAlpha    float64 `mapstructure:"confidence_alpha"`
	LookupMode         string  `mapstructure:"lookup_mode"` // best_of_group|first_match
}

// RejectConfig holds pre-rejection thresholds evaluated before pass 1.
type RejectConfig struct {
	ShortMS          int     `mapstructure:"reject_short_ms"`
	LongMS           int     `mapstructure:"reject_long_ms"`
	PowerThres       float64 `mapstructure:"power_reject_thres"`
}

// ServerConfig configures the HTTP recognition frontend.
type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	Workers         int    `mapstructure:"workers"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout_secs"`
	MaxAudioBytes   int    `mapstructure:"max_audio_bytes"`
	RequestTimeout  int    `mapstructure:"request_timeout_secs"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// DefaultConfig returns the engine defaults, matching the original decoder's
// compiled-in defaults (DEF_SMPPERIOD=16kHz, DEF_FRAMESIZE=400, etc).
func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			AcousticModel: "models/hmmdefs",
			HMMList:       "models/hmmlist",
			NgramForward:  "models/lm.forward.arpa",
			NgramBackward: "models/lm.backward.arpa",
			DFAGrammar:    "",
			Dictionary:    "models/dict",
			CMNFile:       "",
		},
		Audio: AudioConfig{
			SampleFreq:   16000,
			FrameSize:    400,
			FrameShift:   160,
			PreEmph:      0.97,
			FbankNum:     24,
			MFCCDim:      12,
			Lifter:       22,
			DelWin:       2,
			AccWin:       2,
			HiPass:       -1,
			LoPass:       -1,
			CMN:          true,
			CVN:          false,
			RawEnergy:    true,
			ENormalize:   false,
			EScale:       1.0,
			SilFloor:     50.0,
			UsePower:     false,
			ZMeanFrame:   false,
			WithC0:       false,
			WithEnergy:   true,
			AbsESuppress: true,
			VTLNAlpha:    1.0,
			VTLNLower:    -1,
			VTLNUpper:    -1,
			SSAlpha:      2.0,
			SSFloor:      0.5,
		},
		Search: SearchConfig{
			BeamWidth:          0,
			ScoreBeam:          0,
			NBest:              10,
			StackSize:          500,
			HypoOverflow:       0,
			LookupRange:        5,
			ScanBeamThres:      80.0,
			LMWeight:           10.0,
			LMPenalty:          0.0,
			LMWeight2:          10.0,
			LMPenalty2:         0.0,
			TransparentPenalty: 0.0,
			IWCD1:              "avg",
			GPrune:             "safe",
			GaussianPruneN:     2,
			SPModel:            "",
			SPFrameDuration:    3,
			FallbackOnePass:    false,
			ConfidenceAlpha:    0.05,
			LookupMode:         "best_of_group",
		},
		Reject: RejectConfig{
			ShortMS:    0,
			LongMS:     0,
			PowerThres: 0,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			Workers:         2,
			ShutdownTimeout: 30,
			MaxAudioBytes:   64 << 20,
			RequestTimeout:  60,
		},
		LogLevel: "info",
	}
}

// RegisterFlags binds every recognized option to a pflag.FlagSet.
func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("acoustic-model", defaults.Paths.AcousticModel, "Path to HMM definitions (ASCII hmmdefs or BINHMM)")
	fs.String("hmm-list", defaults.Paths.HMMList, "Path to logical-to-physical HMM list")
	fs.String("ngram-forward", defaults.Paths.NgramForward, "Path to forward ARPA N-gram used in pass 1")
	fs.String("ngram-backward", defaults.Paths.NgramBackward, "Path to backward/reverse ARPA N-gram used in pass 2")
	fs.String("dfa-grammar", defaults.Paths.DFAGrammar, "Path to DFA grammar file (enables grammar mode)")
	fs.String("dictionary", defaults.Paths.Dictionary, "Path to word dictionary")
	fs.String("cmn-file", defaults.Paths.CMNFile, "Path to persisted CMN/CVN statistics")

	fs.Int("smp-freq", defaults.Audio.SampleFreq, "Sampling frequency in Hz")
	fs.Int("framesize", defaults.Audio.FrameSize, "Window size in samples")
	fs.Int("frameshift", defaults.Audio.FrameShift, "Frame shift in samples")
	fs.Float64("pre-emph", defaults.Audio.PreEmph, "Pre-emphasis coefficient")
	fs.Int("fbank-num", defaults.Audio.FbankNum, "Number of mel filterbank channels")
	fs.Int("mfcc-dim", defaults.Audio.MFCCDim, "Number of cepstral coefficients")
	fs.Int("lifter", defaults.Audio.Lifter, "Cepstral liftering coefficient")
	fs.Int("del-win", defaults.Audio.DelWin, "Delta window size")
	fs.Int("acc-win", defaults.Audio.AccWin, "Acceleration window size")
	fs.Int("hipass", defaults.Audio.HiPass, "High frequency cutoff, -1 to disable")
	fs.Int("lopass", defaults.Audio.LoPass, "Low frequency cutoff, -1 to disable")
	fs.Bool("cmn", defaults.Audio.CMN, "Enable real-time cepstral mean normalization")
	fs.Bool("cvn", defaults.Audio.CVN, "Enable real-time cepstral variance normalization")
	fs.Bool("raw-e", defaults.Audio.RawEnergy, "Use raw (pre-emphasis) energy")
	fs.Bool("enormal", defaults.Audio.ENormalize, "Normalize energy against previous utterance's max")
	fs.Float64("escale", defaults.Audio.EScale, "Log-energy scaling coefficient")
	fs.Float64("sil-floor", defaults.Audio.SilFloor, "Silence floor in dB (not applied by the feature extractor)")
	fs.Bool("usepower", defaults.Audio.UsePower, "Use power instead of magnitude in filterbank analysis")
	fs.Bool("zmeanframe", defaults.Audio.ZMeanFrame, "Subtract window mean before pre-emphasis")
	fs.Float64("vtln-alpha", defaults.Audio.VTLNAlpha, "VTLN warping factor")
	fs.Float64("vtln-lower", defaults.Audio.VTLNLower, "VTLN lower cutoff frequency")
	fs.Float64("vtln-upper", defaults.Audio.VTLNUpper, "VTLN upper cutoff frequency")
	fs.Float64("ss-alpha", defaults.Audio.SSAlpha, "Spectral subtraction alpha")
	fs.Float64("ss-floor", defaults.Audio.SSFloor, "Spectral subtraction flooring coefficient")
	fs.String("noise-spectrum", defaults.Audio.NoiseSpec, "Path to noise spectrum for spectral subtraction")

	fs.Int("beam-width", defaults.Search.BeamWidth, "Pass-1 rank beam width, 0 = no pruning")
	fs.Float64("score-beam", defaults.Search.ScoreBeam, "Pass-1 score-offset beam width, 0 = disabled")
	fs.Int("nbest", defaults.Search.NBest, "Number of sentence hypotheses to produce")
	fs.Int("stack-size", defaults.Search.StackSize, "Pass-2 stack overflow cap")
	fs.Int("hypo-overflow", defaults.Search.HypoOverflow, "Pass-2 hypothesis overflow cap (not read: pass 2 is bounded only by stack-size and n-best)")
	fs.Int("lookup-range", defaults.Search.LookupRange, "Pass-2 trellis expansion window, in frames")
	fs.Float64("scan-beam-thres", defaults.Search.ScanBeamThres, "Pass-2 intra-word Viterbi pruning threshold (not read: pass 2 reuses pass-1 trellis scores and runs no intra-word Viterbi)")
	fs.Float64("lm-weight", defaults.Search.LMWeight, "Pass-1 language model weight")
	fs.Float64("lm-penalty", defaults.Search.LMPenalty, "Pass-1 word insertion penalty")
	fs.Float64("lm-weight2", defaults.Search.LMWeight2, "Pass-2 language model weight")
	fs.Float64("lm-penalty2", defaults.Search.LMPenalty2, "Pass-2 word insertion penalty")
	fs.Float64("transparent-penalty", defaults.Search.TransparentPenalty, "Penalty applied to transparent dictionary entries")
	fs.String("iwcd1", defaults.Search.IWCD1, "Context-dependent set combination policy: max|avg|bestN")
	fs.String("gprune", defaults.Search.GPrune, "Gaussian pruning method: none disables pruning; safe, heuristic and beam all select safe top-N pruning")
	fs.Int("gaussian-prune-n", defaults.Search.GaussianPruneN, "Number of best Gaussians kept for pruning threshold")
	fs.String("sp-model", defaults.Search.SPModel, "Short-pause HMM name, enables segmentation when set")
	fs.Int("sp-frame-duration", defaults.Search.SPFrameDuration, "Consecutive pause frames needed to trigger a segment boundary")
	fs.Bool("fallback-1pass", defaults.Search.FallbackOnePass, "Emit pass-1 best result if pass 2 finds nothing")
	fs.Float64("confidence-alpha", defaults.Search.ConfidenceAlpha, "Confidence measure smoothing constant")
	fs.String("lookup-mode", defaults.Search.LookupMode, "Backward trellis lookup tie-break: best_of_group|first_match (not read: lookup always keeps the highest-scoring entry)")

	fs.Int("reject-short-ms", defaults.Reject.ShortMS, "Reject utterances shorter than this, in ms; 0 = disabled")
	fs.Int("reject-long-ms", defaults.Reject.LongMS, "Reject utterances longer than this, in ms; 0 = disabled")
	fs.Float64("power-reject-thres", defaults.Reject.PowerThres, "Reject utterances whose average frame energy is below this; 0 = disabled")

	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("workers", defaults.Server.Workers, "Max concurrent recognition workers")
	fs.Int("shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain timeout in seconds")
	fs.Int("max-audio-bytes", defaults.Server.MaxAudioBytes, "Maximum POST /recognize body size in bytes")
	fs.Int("request-timeout", defaults.Server.RequestTimeout, "Per-request recognition timeout in seconds")

	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

// Load resolves configuration from, in increasing precedence: defaults, an
// optional config file, environment variables (GOJULIUS_ prefix), and bound
// command flags.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("GOJULIUS")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("gojulius")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.acoustic_model", c.Paths.AcousticModel)
	v.SetDefault("paths.hmm_list", c.Paths.HMMList)
	v.SetDefault("paths.ngram_forward", c.Paths.NgramForward)
	v.SetDefault("paths.ngram_backward", c.Paths.NgramBackward)
	v.SetDefault("paths.dfa_grammar", c.Paths.DFAGrammar)
	v.SetDefault("paths.dictionary", c.Paths.Dictionary)
	v.SetDefault("paths.cmn_file", c.Paths.CMNFile)

	v.SetDefault("audio.smp_freq", c.Audio.SampleFreq)
	v.SetDefault("audio.framesize", c.Audio.FrameSize)
	v.SetDefault("audio.frameshift", c.Audio.FrameShift)
	v.SetDefault("audio.pre_emph", c.Audio.PreEmph)
	v.SetDefault("audio.fbank_num", c.Audio.FbankNum)
	v.SetDefault("audio.mfcc_dim", c.Audio.MFCCDim)
	v.SetDefault("audio.lifter", c.Audio.Lifter)
	v.SetDefault("audio.del_win", c.Audio.DelWin)
	v.SetDefault("audio.acc_win", c.Audio.AccWin)
	v.SetDefault("audio.hipass", c.Audio.HiPass)
	v.SetDefault("audio.lopass", c.Audio.LoPass)
	v.SetDefault("audio.cmn", c.Audio.CMN)
	v.SetDefault("audio.cvn", c.Audio.CVN)
	v.SetDefault("audio.raw_e", c.Audio.RawEnergy)
	v.SetDefault("audio.enormal", c.Audio.ENormalize)
	v.SetDefault("audio.escale", c.Audio.EScale)
	v.SetDefault("audio.sil_floor", c.Audio.SilFloor)
	v.SetDefault("audio.usepower", c.Audio.UsePower)
	v.SetDefault("audio.zmeanframe", c.Audio.ZMeanFrame)
	v.SetDefault("audio.vtln_alpha", c.Audio.VTLNAlpha)
	v.SetDefault("audio.vtln_lower", c.Audio.VTLNLower)
	v.SetDefault("audio.vtln_upper", c.Audio.VTLNUpper)
	v.SetDefault("audio.ss_alpha", c.Audio.SSAlpha)
	v.SetDefault("audio.ss_floor", c.Audio.SSFloor)
	v.SetDefault("audio.noise_spectrum", c.Audio.NoiseSpec)

	v.SetDefault("search.beam_width", c.Search.BeamWidth)
	v.SetDefault("search.score_beam", c.Search.ScoreBeam)
	v.SetDefault("search.nbest", c.Search.NBest)
	v.SetDefault("search.stack_size", c.Search.StackSize)
	v.SetDefault("search.hypo_overflow", c.Search.HypoOverflow)
	v.SetDefault("search.lookup_range", c.Search.LookupRange)
	v.SetDefault("search.scan_beam_thres", c.Search.ScanBeamThres)
	v.SetDefault("search.lm_weight", c.Search.LMWeight)
	v.SetDefault("search.lm_penalty", c.Search.LMPenalty)
	v.SetDefault("search.lm_weight2", c.Search.LMWeight2)
	v.SetDefault("search.lm_penalty2", c.Search.LMPenalty2)
	v.SetDefault("search.transparent_penalty", c.Search.TransparentPenalty)
	v.SetDefault("search.iwcd1", c.Search.IWCD1)
	v.SetDefault("search.gprune", c.Search.GPrune)
	v.SetDefault("search.gaussian_prune_n", c.Search.GaussianPruneN)
	v.SetDefault("search.sp_model", c.Search.SPModel)
	v.SetDefault("search.sp_frame_duration", c.Search.SPFrameDuration)
	v.SetDefault("search.fallback_1pass", c.Search.FallbackOnePass)
	v.SetDefault("search.confidence_alpha", c.Search.ConfidenceAlpha)
	v.SetDefault("search.lookup_mode", c.Search.LookupMode)

	v.SetDefault("reject.reject_short_ms", c.Reject.ShortMS)
	v.SetDefault("reject.reject_long_ms", c.Reject.LongMS)
	v.SetDefault("reject.power_reject_thres", c.Reject.PowerThres)

	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.shutdown_timeout_secs", c.Server.ShutdownTimeout)
	v.SetDefault("server.max_audio_bytes", c.Server.MaxAudioBytes)
	v.SetDefault("server.request_timeout_secs", c.Server.RequestTimeout)

	v.SetDefault("log_level", c.LogLevel)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("paths.acoustic_model", "acoustic-model")
	v.RegisterAlias("paths.hmm_list", "hmm-list")
	v.RegisterAlias("paths.ngram_forward", "ngram-forward")
	v.RegisterAlias("paths.ngram_backward", "ngram-backward")
	v.RegisterAlias("paths.dfa_grammar", "dfa-grammar")
	v.RegisterAlias("paths.dictionary", "dictionary")
	v.RegisterAlias("paths.cmn_file", "cmn-file")

	v.RegisterAlias("audio.smp_freq", "smp-freq")
	v.RegisterAlias("audio.framesize", "framesize")
	v.RegisterAlias("audio.frameshift", "frameshift")
	v.RegisterAlias("audio.pre_emph", "pre-emph")
	v.RegisterAlias("audio.fbank_num", "fbank-num")
	v.RegisterAlias("audio.mfcc_dim", "mfcc-dim")
	v.RegisterAlias("audio.lifter", "lifter")
	v.RegisterAlias("audio.del_win", "del-win")
	v.RegisterAlias("audio.acc_win", "acc-win")
	v.RegisterAlias("audio.hipass", "hipass")
	v.RegisterAlias("audio.lopass", "lopass")
	v.RegisterAlias("audio.cmn", "cmn")
	v.RegisterAlias("audio.cvn", "cvn")
	v.RegisterAlias("audio.raw_e", "raw-e")
	v.RegisterAlias("audio.enormal", "enormal")
	v.RegisterAlias("audio.escale", "escale")
	v.RegisterAlias("audio.sil_floor", "sil-floor")
	v.RegisterAlias("audio.usepower", "usepower")
	v.RegisterAlias("audio.zmeanframe", "zmeanframe")
	v.RegisterAlias("audio.vtln_alpha", "vtln-alpha")
	v.RegisterAlias("audio.vtln_lower", "vtln-lower")
	v.RegisterAlias("audio.vtln_upper", "vtln-upper")
	v.RegisterAlias("audio.ss_alpha", "ss-alpha")
	v.RegisterAlias("audio.ss_floor", "ss-floor")
	v.RegisterAlias("audio.noise_spectrum", "noise-spectrum")

	v.RegisterAlias("search.beam_width", "beam-width")
	v.RegisterAlias("search.score_beam", "score-beam")
	v.RegisterAlias("search.nbest", "nbest")
	v.RegisterAlias("search.stack_size", "stack-size")
	v.RegisterAlias("search.hypo_overflow", "hypo-overflow")
	v.RegisterAlias("search.lookup_range", "lookup-range")
	v.RegisterAlias("search.scan_beam_thres", "scan-beam-thres")
	v.RegisterAlias("search.lm_weight", "lm-weight")
	v.RegisterAlias("search.lm_penalty", "lm-penalty")
	v.RegisterAlias("search.lm_weight2", "lm-weight2")
	v.RegisterAlias("search.lm_penalty2", "lm-penalty2")
	v.RegisterAlias("search.transparent_penalty", "transparent-penalty")
	v.RegisterAlias("search.iwcd1", "iwcd1")
	v.RegisterAlias("search.gprune", "gprune")
	v.RegisterAlias("search.gaussian_prune_n", "gaussian-prune-n")
	v.RegisterAlias("search.sp_model", "sp-model")
	v.RegisterAlias("search.sp_frame_duration", "sp-frame-duration")
	v.RegisterAlias("search.fallback_1pass", "fallback-1pass")
	v.RegisterAlias("search.confidence_alpha", "confidence-alpha")
	v.RegisterAlias("search.lookup_mode", "lookup-mode")

	v.RegisterAlias("reject.reject_short_ms", "reject-short-ms")
	v.RegisterAlias("reject.reject_long_ms", "reject-long-ms")
	v.RegisterAlias("reject.power_reject_thres", "power-reject-thres")

	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.workers", "workers")
	v.RegisterAlias("server.shutdown_timeout_secs", "shutdown-timeout")
	v.RegisterAlias("server.max_audio_bytes", "max-audio-bytes")
	v.RegisterAlias("server.request_timeout_secs", "request-timeout")

	v.RegisterAlias("log_level", "log-level")
}
