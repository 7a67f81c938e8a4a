package model

import "fmt"

// Manifest is a pinned set of model asset files for one named model
// package. The acoustic model, HMM list, N-gram LMs, and dictionary that
// make up one recognition setup are versioned together so that "download
// this repo" always yields a self-consistent set of paths config.PathsConfig
// can point at directly.
type Manifest struct {
	Repo  string      `json:"repo"`
	Files []ModelFile `json:"files"`
}

// ModelFile is one asset inside a Manifest.
type ModelFile struct {
	Filename  string `json:"filename"`
	Revision  string `json:"revision"`
	SHA256    string `json:"sha256"`
	LocalPath string `json:"local_path,omitempty"` // Override local save path (defaults to Filename).
}

// PinnedManifest returns the fixed file list for a known model repo. Unlike
// the original decoder's assets, which a site administrator copied into
// place by hand, these repos are a download target: "dictation-kit" is the
// general continuous-speech N-gram setup, "grammar-kit" is the matching
// small-vocabulary DFA grammar setup used by the engine's grammar mode.
func PinnedManifest(repo string) (Manifest, error) {
	switch repo {
	case "julius-speech/dictation-kit-4.5":
		return Manifest{
			Repo: repo,
			Files: []ModelFile{
				{
					Filename:  "hmmdefs.binhmm",
					Revision:  "4.5",
					SHA256:    "504182cf9f268c4d358cbde8897a5c46c8ae942e04a8b598574922ecbfaa6bf5",
					LocalPath: "hmmdefs",
				},
				{
					Filename:  "hmm.list",
					Revision:  "4.5",
					SHA256:    "77f784003e5c97ca4e44a0f7cad03abf163fced5fd354e0f2f498a741dbd334b",
					LocalPath: "hmmlist",
				},
				{
					Filename:  "bccwj.60k.bingram-forward.arpa",
					Revision:  "4.5",
					SHA256:    "5eae7d508dd49d6a0fee9053c444715c045692c4aacbeddf5fd0a6546e81187d",
					LocalPath: "lm.forward.arpa",
				},
				{
					Filename:  "bccwj.60k.bingram-backward.arpa",
					Revision:  "4.5",
					SHA256:    "0f9cb013ae48b946ac615fb82bede2013983fbccd63f7de88c4c74e1296a997b",
					LocalPath: "lm.backward.arpa",
				},
				{
					Filename:  "bccwj.60k.htkdic",
					Revision:  "4.5",
					SHA256:    "1757f019cbeadd71d219653c4d13bd1dc9a5c6482b5270114c35e359953cb579",
					LocalPath: "dict",
				},
			},
		}, nil
	case "julius-speech/dictation-kit-4.5-mirror":
		// Community mirror: checksums are not pinned in the manifest and are
		// instead resolved from the host's linked-ETag metadata at download
		// time, same as the teacher's gated-repo case.
		return Manifest{
			Repo: repo,
			Files: []ModelFile{
				{Filename: "hmmdefs.binhmm", Revision: "4.5", LocalPath: "hmmdefs"},
			},
		}, nil
	case "julius-speech/grammar-kit-4.5":
		return Manifest{
			Repo: repo,
			Files: []ModelFile{
				{
					Filename:  "sample.dfa",
					Revision:  "4.5",
					SHA256:    "356801027aea0970608a09b99bbd572c23458556c6bb1608d51092d74291935a",
				},
				{
					Filename:  "sample.dict",
					Revision:  "4.5",
					SHA256:    "066d9b4e88841c81d76c33920c2a4592e6463bf2f6794913377b0d5b1ff12b44",
					LocalPath: "dict",
				},
			},
		}, nil
	default:
		return Manifest{}, fmt.Errorf("no pinned manifest for repo %q", repo)
	}
}
