package ws

import "encoding/base64"

// decodeBase64 accepts both standard and raw (unpadded) base64, since
// clients in the wild send either for file_data/audio_data.
func decodeBase64(s string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
