package attestation

const enclaveReportSize = 384

// decodeEnclaveReport parses the 384-byte SGX enclave report laid out in
// spec §4.B. Reserved ranges are read (so the trailing length-equality check
// protects against layout drift) but their contents are discarded.
func decodeEnclaveReport(buf []byte) (EnclaveReport, error) {
	if len(buf) != enclaveReportSize {
		return EnclaveReport{}, parseErr("enclave report must be exactly 384 bytes", nil)
	}

	c := newCursor(buf)
	var r EnclaveReport

	cpuSVN, err := c.take(16)
	if err != nil {
		return EnclaveReport{}, err
	}
	copy(r.CPUSVN[:], cpuSVN)

	miscSelect, err := c.takeU32LE()
	if err != nil {
		return EnclaveReport{}, err
	}
	r.MiscSelect = miscSelect

	if _, err := c.take(28); err != nil { // reserved
		return EnclaveReport{}, err
	}

	attributes, err := c.take(16)
	if err != nil {
		return EnclaveReport{}, err
	}
	copy(r.Attributes[:], attributes)

	mrEnclave, err := c.take(32)
	if err != nil {
		return EnclaveReport{}, err
	}
	copy(r.MREnclave[:], mrEnclave)

	if _, err := c.take(32); err != nil { // reserved
		return EnclaveReport{}, err
	}

	mrSigner, err := c.take(32)
	if err != nil {
		return EnclaveReport{}, err
	}
	copy(r.MRSigner[:], mrSigner)

	if _, err := c.take(96); err != nil { // reserved
		return EnclaveReport{}, err
	}

	isvProdID, err := c.takeU16LE()
	if err != nil {
		return EnclaveReport{}, err
	}
	r.ISVProdID = isvProdID

	isvSVN, err := c.takeU16LE()
	if err != nil {
		return EnclaveReport{}, err
	}
	r.ISVSVN = isvSVN

	if _, err := c.take(60); err != nil { // reserved
		return EnclaveReport{}, err
	}

	reportData, err := c.take(64)
	if err != nil {
		return EnclaveReport{}, err
	}
	copy(r.ReportData[:], reportData)

	if err := c.done(); err != nil {
		return EnclaveReport{}, err
	}

	return r, nil
}
