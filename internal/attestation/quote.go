package attestation

const quoteSize = 432

// decodeQuote parses the 432-byte outer SGX quote laid out in spec §4.C,
// dispatching on the version field to select the EPID/ECDSA variant of
// QuoteVersion and decoding the embedded 384-byte enclave report.
func decodeQuote(buf []byte) (Quote, error) {
	if len(buf) != quoteSize {
		return Quote{}, parseErr("quote must be exactly 432 bytes", nil)
	}

	c := newCursor(buf)
	var q Quote

	version, err := c.takeU16LE()
	if err != nil {
		return Quote{}, err
	}

	sigOrAK, err := c.takeU16LE()
	if err != nil {
		return Quote{}, err
	}

	qv, err := decodeQuoteVersion(version, sigOrAK)
	if err != nil {
		return Quote{}, err
	}
	q.Version = qv

	gid, err := c.takeU32LE()
	if err != nil {
		return Quote{}, err
	}
	q.GID = gid

	isvSVNQe, err := c.takeU16LE()
	if err != nil {
		return Quote{}, err
	}
	q.ISVSVNQe = isvSVNQe

	isvSVNPce, err := c.takeU16LE()
	if err != nil {
		return Quote{}, err
	}
	q.ISVSVNPce = isvSVNPce

	qeVendorID, err := c.take(16)
	if err != nil {
		return Quote{}, err
	}
	copy(q.QEVendorID[:], qeVendorID)

	userData, err := c.take(20)
	if err != nil {
		return Quote{}, err
	}
	copy(q.UserData[:], userData)

	reportBytes, err := c.take(enclaveReportSize)
	if err != nil {
		return Quote{}, err
	}
	report, err := decodeEnclaveReport(reportBytes)
	if err != nil {
		return Quote{}, err
	}
	q.ISVEnclaveReport = report

	if err := c.done(); err != nil {
		return Quote{}, err
	}

	return q, nil
}

func decodeQuoteVersion(version, inner uint16) (QuoteVersion, error) {
	switch version {
	case 1:
		epid, err := decodeEpidSigType(inner)
		if err != nil {
			return QuoteVersion{}, err
		}
		return QuoteVersion{variant: variantV1, epid: epid}, nil
	case 2:
		epid, err := decodeEpidSigType(inner)
		if err != nil {
			return QuoteVersion{}, err
		}
		return QuoteVersion{variant: variantV2, epid: epid}, nil
	case 3:
		ak, err := decodeEcdsaAkType(inner)
		if err != nil {
			return QuoteVersion{}, err
		}
		return QuoteVersion{variant: variantV3, ecdsa: ak}, nil
	default:
		return QuoteVersion{}, parseErr("unsupported quote version", nil)
	}
}

func decodeEpidSigType(v uint16) (EpidSigType, error) {
	switch v {
	case 0:
		return EpidUnlinkable, nil
	case 1:
		return EpidLinkable, nil
	default:
		return 0, parseErr("unsupported EPID signature type", nil)
	}
}

func decodeEcdsaAkType(v uint16) (EcdsaAkType, error) {
	switch v {
	case 2:
		return EcdsaP256, nil
	case 3:
		return EcdsaP384, nil
	default:
		return 0, parseErr("unsupported ECDSA attestation-key type", nil)
	}
}
